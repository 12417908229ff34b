package config

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
)

func validApp() App {
	a := Default()
	a.Kintone.BaseURL = "https://example.cybozu.com"
	a.Kintone.APIToken = "token"
	return a
}

func TestValidate_Default(t *testing.T) {
	if err := validApp().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	a := validApp()
	a.Kintone.APIToken = ""
	if err := a.Validate(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}

	a.Kintone.Username = "user"
	a.Kintone.Password = "pass"
	if err := a.Validate(); err != nil {
		t.Fatalf("password auth should be accepted, got %v", err)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	cases := map[string]func(*App){
		"no base url":   func(a *App) { a.Kintone.BaseURL = "" },
		"no app id":     func(a *App) { a.Master.AppID = 0 },
		"no store":      func(a *App) { a.Form.StoreField = "" },
		"no space":      func(a *App) { a.Form.SpaceField = "" },
		"no delimiters": func(a *App) { a.Delimiters.IDs = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := validApp()
			mutate(&a)
			if err := a.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRegisteredDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.example.com", "example.com"},
		{"https://sub.example.co.uk/k/", "example.co.uk"},
		{"http://127.0.0.1:8080", "127.0.0.1"},
		{"http://localhost:3000", "localhost"},
	}
	for _, c := range cases {
		got, err := RegisteredDomain(c.in)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%s: want %s, got %s", c.in, c.want, got)
		}
	}

	if _, err := RegisteredDomain("not a url"); err == nil {
		t.Fatal("expected error for url without host")
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("kintone.baseurl", "https://example.cybozu.com")
	v.Set("kintone.token", "abc")
	v.Set("delimiters.namedecode", ",")

	a, err := FromViper(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Delimiters.NameEncode != "\n" {
		t.Fatalf("expected newline encode delimiter, got %q", a.Delimiters.NameEncode)
	}
	if a.Delimiters.NameDecode != "," {
		t.Fatalf("expected comma decode delimiter, got %q", a.Delimiters.NameDecode)
	}
	if !a.Delimiters.Mismatch() {
		t.Fatal("expected delimiter mismatch to be reported")
	}
	if a.Master.AppID != DefaultMasterAppID || a.Form.StoreField != DefaultStoreField {
		t.Fatalf("defaults not applied: %+v", a)
	}
}
