package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name  string
		sid   string
		token string
		want  bool
	}{
		{"configured", "AC123", "secret", true},
		{"empty sid", "", "secret", false},
		{"empty token", "AC123", "", false},
		{"placeholder sid", "placeholder", "secret", false},
		{"placeholder token", "AC123", "placeholder", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewTwilioNotifier(tt.sid, tt.token, "+10000000000")
			if got := n.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendSkipsWhenUnconfigured(t *testing.T) {
	n := NewTwilioNotifier("placeholder", "placeholder", "+10000000000")
	if err := n.Send(context.Background(), "+923001234567", "hello"); err != nil {
		t.Errorf("Send() on disabled notifier = %v, want nil", err)
	}
}

func TestSendPostsForm(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"From":     r.PostForm.Get("From"),
			"To":       r.PostForm.Get("To"),
			"Body":     r.PostForm.Get("Body"),
			"MediaUrl": r.PostForm.Get("MediaUrl"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "secret", "+10000000000")
	n.baseURL = srv.URL

	err := n.SendPDF(context.Background(), "+923001234567", "Your report is ready", "https://example.com/report.pdf")
	if err != nil {
		t.Fatalf("SendPDF() error = %v", err)
	}

	if gotForm["From"] != "whatsapp:+10000000000" {
		t.Errorf("From = %q", gotForm["From"])
	}
	if gotForm["To"] != "whatsapp:+923001234567" {
		t.Errorf("To = %q", gotForm["To"])
	}
	if gotForm["MediaUrl"] != "https://example.com/report.pdf" {
		t.Errorf("MediaUrl = %q", gotForm["MediaUrl"])
	}
}

func TestSendTruncatesBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "secret", "+10000000000")
	n.baseURL = srv.URL

	if err := n.Send(context.Background(), "+923001234567", strings.Repeat("x", 5000)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(gotBody) != maxBodyChars {
		t.Errorf("body length = %d, want %d", len(gotBody), maxBodyChars)
	}
}

func TestSendTruncatesAtRuneBoundary(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "secret", "+10000000000")
	n.baseURL = srv.URL

	// One ASCII byte shifts the 2-byte Urdu characters off even offsets,
	// so a plain byte slice at 1600 would land mid-rune.
	body := "!" + strings.Repeat("خون", 400)
	if err := n.Send(context.Background(), "+923001234567", body); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(gotBody) == 0 || len(gotBody) > maxBodyChars {
		t.Errorf("body length = %d, want (0, %d]", len(gotBody), maxBodyChars)
	}
	if !utf8.ValidString(gotBody) {
		t.Error("truncated body is not valid UTF-8")
	}
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Authentication Error"}`))
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "wrong", "+10000000000")
	n.baseURL = srv.URL

	if err := n.Send(context.Background(), "+923001234567", "hello"); err == nil {
		t.Error("Send() error = nil, want error on 401")
	}
}
