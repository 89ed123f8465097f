package journal

import (
	"errors"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindRejection, KindTransition, KindDownstreamFailure} {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}

	if _, err := ParseKind("audit"); err == nil {
		t.Error("ParseKind(audit) should fail")
	}
}

func TestQuery_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{name: "empty", query: Query{}},
		{name: "time range", query: Query{Since: &earlier, Until: &now}},
		{name: "inverted range", query: Query{Since: &now, Until: &earlier}, wantErr: true},
		{name: "known kind", query: Query{Kind: KindTransition}},
		{name: "unknown kind", query: Query{Kind: "audit"}, wantErr: true},
		{name: "limit too large", query: Query{Limit: MaxQueryLimit + 1}, wantErr: true},
		{name: "negative limit", query: Query{Limit: -1}, wantErr: true},
		{name: "negative offset", query: Query{Offset: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qe *QueryError
				if !errors.As(err, &qe) {
					t.Errorf("error %T is not a *QueryError", err)
				}
			}
		})
	}
}

func TestQuery_EffectiveLimit(t *testing.T) {
	if got := (&Query{}).EffectiveLimit(); got != DefaultQueryLimit {
		t.Errorf("EffectiveLimit() = %d, want %d", got, DefaultQueryLimit)
	}
	if got := (&Query{Limit: 7}).EffectiveLimit(); got != 7 {
		t.Errorf("EffectiveLimit() = %d, want 7", got)
	}
}

func TestQuery_Matches(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{
		Kind:      KindRejection,
		Time:      at,
		Service:   "identity",
		Code:      "unauthorized",
		RequestID: "req-1",
	}
	before := at.Add(-time.Minute)
	after := at.Add(time.Minute)

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{name: "no filters", query: Query{}, want: true},
		{name: "since before", query: Query{Since: &before}, want: true},
		{name: "since after", query: Query{Since: &after}, want: false},
		{name: "until before", query: Query{Until: &before}, want: false},
		{name: "inclusive bounds", query: Query{Since: &at, Until: &at}, want: true},
		{name: "kind", query: Query{Kind: KindRejection}, want: true},
		{name: "other kind", query: Query{Kind: KindTransition}, want: false},
		{name: "service", query: Query{Service: "identity"}, want: true},
		{name: "other service", query: Query{Service: "credential"}, want: false},
		{name: "code", query: Query{Code: "forbidden"}, want: false},
		{name: "request id", query: Query{RequestID: "req-1"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(entry); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("disk full")

	errs := []error{
		NewStorageError("sqlite", "store", cause),
		NewQueryError(&Query{}, cause),
		NewRetentionError(30, cause),
		NewExportError("csv", 3, cause),
	}
	for _, err := range errs {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
		if err.Error() == "" {
			t.Errorf("%T has an empty message", err)
		}
	}
}
