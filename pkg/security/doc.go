/*
Package security groups the gateway's transport and credential handling.

  - auth validates Bearer and Service JWTs and enforces route roles.
  - secrets resolves the shared HMAC secret from config, the environment or
    a watched file.
  - tls terminates HTTPS on the listener and reloads renewed certificates.

Token values and secrets are never logged; see the logging redactor in
package telemetry/logging.
*/
package security
