package sheets

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/desertthunder/setsum/internal/shared"
)

func TestStatusClassifier(t *testing.T) {
	c := StatusClassifier{}

	t.Run("IsRetryable", func(t *testing.T) {
		tc := []struct {
			name string
			err  error
			want bool
		}{
			{name: "rate limited", err: &googleapi.Error{Code: 429}, want: true},
			{name: "timeout", err: &googleapi.Error{Code: 408}, want: true},
			{name: "server error", err: &googleapi.Error{Code: 500}, want: true},
			{name: "bad gateway", err: &googleapi.Error{Code: 502}, want: true},
			{name: "unavailable", err: &googleapi.Error{Code: 503}, want: true},
			{name: "gateway timeout", err: &googleapi.Error{Code: 504}, want: true},
			{name: "not found", err: &googleapi.Error{Code: 404}, want: false},
			{name: "forbidden", err: &googleapi.Error{Code: 403}, want: false},
			{name: "bad request", err: &googleapi.Error{Code: 400}, want: false},
			{name: "plain network error is transient", err: errors.New("connection reset"), want: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := c.IsRetryable(tt.err); got != tt.want {
					t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
				}
			})
		}
	})

	t.Run("classifies wrapped errors", func(t *testing.T) {
		wrapped := apiError("values.get(2024)", &googleapi.Error{Code: 404})
		if c.IsRetryable(wrapped) {
			t.Error("expected wrapped 404 to be non-retryable")
		}
	})

	t.Run("RetryAfter", func(t *testing.T) {
		withHeader := func(v string) error {
			h := http.Header{}
			h.Set("Retry-After", v)
			return &googleapi.Error{Code: 429, Header: h}
		}

		tc := []struct {
			name    string
			err     error
			want    time.Duration
			wantHas bool
		}{
			{name: "integer seconds", err: withHeader("30"), want: 30 * time.Second, wantHas: true},
			{name: "fractional seconds", err: withHeader("1.5"), want: 1500 * time.Millisecond, wantHas: true},
			{name: "missing header", err: &googleapi.Error{Code: 429}, wantHas: false},
			{name: "unparsable header", err: withHeader("soon"), wantHas: false},
			{name: "not an api error", err: fmt.Errorf("boom"), wantHas: false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, has := c.RetryAfter(tt.err)
				if has != tt.wantHas {
					t.Fatalf("RetryAfter has = %v, want %v", has, tt.wantHas)
				}
				if has && got != tt.want {
					t.Errorf("RetryAfter = %v, want %v", got, tt.want)
				}
			})
		}
	})
}

func TestStatusError(t *testing.T) {
	t.Run("maps 404 onto the sentinel", func(t *testing.T) {
		err := statusError("spreadsheets.get(abc)", &googleapi.Error{Code: 404}, shared.ErrSpreadsheetNotFound)
		if !errors.Is(err, shared.ErrSpreadsheetNotFound) {
			t.Errorf("expected ErrSpreadsheetNotFound, got %v", err)
		}
	})

	t.Run("other statuses wrap the request sentinel", func(t *testing.T) {
		err := statusError("files.list(abc)", &googleapi.Error{Code: 500}, shared.ErrFolderNotFound)
		if errors.Is(err, shared.ErrFolderNotFound) {
			t.Errorf("expected a 500 not to read as not-found, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("classifier still sees the underlying error", func(t *testing.T) {
		err := statusError("values.get(2024)", &googleapi.Error{Code: 503}, shared.ErrSpreadsheetNotFound)
		if !(StatusClassifier{}).IsRetryable(err) {
			t.Error("expected wrapped 503 to stay retryable")
		}
	})
}

func TestTabMissing(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unparsable range", err: &googleapi.Error{Code: 400, Message: "Unable to parse range: Missing!A1"}, want: true},
		{name: "other bad request", err: &googleapi.Error{Code: 400, Message: "Invalid value"}, want: false},
		{name: "not found", err: &googleapi.Error{Code: 404, Message: "Unable to parse range: x"}, want: false},
		{name: "not an api error", err: fmt.Errorf("boom"), want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tabMissing(tt.err); got != tt.want {
				t.Errorf("tabMissing = %v, want %v", got, tt.want)
			}
		})
	}
}
