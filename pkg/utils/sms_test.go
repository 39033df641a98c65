package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestAfricasTalkingSender_SendSMS(t *testing.T) {
	var gotForm map[string]string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotKey = r.Header.Get("apiKey")
		gotForm = map[string]string{
			"username": r.PostForm.Get("username"),
			"to":       r.PostForm.Get("to"),
			"message":  r.PostForm.Get("message"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewAfricasTalkingSender("sandbox", "key")
	s.baseURL = srv.URL

	if err := s.SendSMS(context.Background(), "0712345678", "hello"); err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if gotKey != "key" {
		t.Errorf("Expected apiKey header, got %q", gotKey)
	}
	if gotForm["username"] != "sandbox" || gotForm["to"] != "0712345678" || gotForm["message"] != "hello" {
		t.Errorf("Unexpected form %v", gotForm)
	}
}

func TestAfricasTalkingSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewAfricasTalkingSender("sandbox", "key")
	s.baseURL = srv.URL
	if err := s.SendSMS(context.Background(), "0712345678", "hello"); err == nil {
		t.Error("Expected error on 401")
	}
}

func TestAfricasTalkingSender_MissingCredentials(t *testing.T) {
	if err := NewAfricasTalkingSender("", "").SendSMS(context.Background(), "1", "x"); err == nil {
		t.Error("Expected error without credentials")
	}
}

func TestSMTPMailer_BuildsHTMLMessage(t *testing.T) {
	m := NewSMTPMailer("smtp.test", "587", "bot@carx.test", "pw", "")
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	if err := m.SendEmail(context.Background(), "jane@example.com", "Hi", WrapEmail("<p>body</p>")); err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}
	if gotAddr != "smtp.test:587" || gotFrom != "bot@carx.test" {
		t.Errorf("Unexpected addr/from %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "jane@example.com" {
		t.Errorf("Unexpected recipients %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Content-Type: text/html; charset=UTF-8") {
		t.Error("Expected HTML content type header")
	}
	if !strings.Contains(gotMsg, "<p>body</p>") || !strings.Contains(gotMsg, "Thank you for choosing CarX!") {
		t.Error("Expected wrapped body")
	}
}
