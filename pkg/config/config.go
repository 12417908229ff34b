package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// Default values mirror the layout of the company master app and the
// record form the selector is mounted on.
const (
	DefaultMasterAppID         = 9
	DefaultNameField           = "companyName"
	DefaultBpoIDField          = "bpoId"
	DefaultGoogleDriveIDField  = "googleDriveId"
	DefaultSpaceField          = "company_multi_space"
	DefaultStoreField          = "company_multi_store"
	DefaultBpoIDStoreField     = "company_bpo_store"
	DefaultGoogleDriveIDStore  = "company_drive_store"
	DefaultControlID           = "company-multi-select"
	DefaultLabel               = "送り先を選んでください(複数選択はCtrlを押しながら)"
	DefaultNameDelimiter       = "\n"
	DefaultIDDelimiter         = ","
	DefaultRecordsEndpointPath = "/k/v1/records.json"
)

// Kintone holds how to reach the record service.
type Kintone struct {
	BaseURL  string `mapstructure:"baseurl" validate:"required,url"`
	APIToken string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Proxy    string `mapstructure:"proxy" validate:"omitempty,url"`
}

// Master describes the app that holds the canonical company list.
type Master struct {
	AppID              int    `mapstructure:"app" validate:"gt=0"`
	NameField          string `mapstructure:"namefield" validate:"required"`
	BpoIDField         string `mapstructure:"bpoidfield" validate:"required"`
	GoogleDriveIDField string `mapstructure:"googledriveidfield" validate:"required"`
}

// Form names the fields of the record form the selector is mounted on.
// BpoIDStoreField, GoogleDriveIDStoreField and StructuredStoreField are
// only written when the record actually carries them.
type Form struct {
	SpaceField              string `mapstructure:"space" validate:"required"`
	StoreField              string `mapstructure:"store" validate:"required"`
	BpoIDStoreField         string `mapstructure:"bpostore"`
	GoogleDriveIDStoreField string `mapstructure:"drivestore"`
	StructuredStoreField    string `mapstructure:"structuredstore"`
	ControlID               string `mapstructure:"controlid" validate:"required"`
	Label                   string `mapstructure:"label"`
}

// Delimiters is the delimiter pair used for the name store plus the one
// shared by both id stores.
type Delimiters struct {
	NameEncode string `mapstructure:"nameencode" validate:"required"`
	NameDecode string `mapstructure:"namedecode" validate:"required"`
	IDs        string `mapstructure:"ids" validate:"required"`
}

// Mismatch reports whether the name store is decoded with a different
// delimiter than it is encoded with.
func (d Delimiters) Mismatch() bool {
	return d.NameEncode != d.NameDecode
}

// App is the immutable configuration handed to every component at
// construction. It is passed by value.
type App struct {
	Kintone    Kintone    `mapstructure:"kintone"`
	Master     Master     `mapstructure:"master"`
	Form       Form       `mapstructure:"form"`
	Delimiters Delimiters `mapstructure:"delimiters"`
}

var ErrNoCredentials = errors.New("kintone requires an API token or a username and password")

// Default returns a configuration with every field except the base URL and
// credentials filled in.
func Default() App {
	return App{
		Master: Master{
			AppID:              DefaultMasterAppID,
			NameField:          DefaultNameField,
			BpoIDField:         DefaultBpoIDField,
			GoogleDriveIDField: DefaultGoogleDriveIDField,
		},
		Form: Form{
			SpaceField:              DefaultSpaceField,
			StoreField:              DefaultStoreField,
			BpoIDStoreField:         DefaultBpoIDStoreField,
			GoogleDriveIDStoreField: DefaultGoogleDriveIDStore,
			ControlID:               DefaultControlID,
			Label:                   DefaultLabel,
		},
		Delimiters: Delimiters{
			NameEncode: DefaultNameDelimiter,
			NameDecode: DefaultNameDelimiter,
			IDs:        DefaultIDDelimiter,
		},
	}
}

// SetDefaults registers the defaults of Default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("kintone.baseurl", "")
	v.SetDefault("kintone.token", "")
	v.SetDefault("kintone.username", "")
	v.SetDefault("kintone.password", "")
	v.SetDefault("kintone.proxy", "")
	v.SetDefault("master.app", d.Master.AppID)
	v.SetDefault("master.namefield", d.Master.NameField)
	v.SetDefault("master.bpoidfield", d.Master.BpoIDField)
	v.SetDefault("master.googledriveidfield", d.Master.GoogleDriveIDField)
	v.SetDefault("form.space", d.Form.SpaceField)
	v.SetDefault("form.store", d.Form.StoreField)
	v.SetDefault("form.bpostore", d.Form.BpoIDStoreField)
	v.SetDefault("form.drivestore", d.Form.GoogleDriveIDStoreField)
	v.SetDefault("form.structuredstore", "")
	v.SetDefault("form.controlid", d.Form.ControlID)
	v.SetDefault("form.label", d.Form.Label)
	v.SetDefault("delimiters.nameencode", `\n`)
	v.SetDefault("delimiters.namedecode", `\n`)
	v.SetDefault("delimiters.ids", d.Delimiters.IDs)
}

// FromViper builds and validates an App from v.
func FromViper(v *viper.Viper) (App, error) {
	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("could not decode config: %w", err)
	}
	app.Delimiters.NameEncode = unescape(app.Delimiters.NameEncode)
	app.Delimiters.NameDecode = unescape(app.Delimiters.NameDecode)
	app.Delimiters.IDs = unescape(app.Delimiters.IDs)
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// DelimitersFromViper reads only the delimiter settings, for commands that
// never talk to kintone.
func DelimitersFromViper(v *viper.Viper) (Delimiters, error) {
	var d Delimiters
	if err := v.UnmarshalKey("delimiters", &d); err != nil {
		return Delimiters{}, fmt.Errorf("could not decode delimiters: %w", err)
	}
	d.NameEncode = unescape(d.NameEncode)
	d.NameDecode = unescape(d.NameDecode)
	d.IDs = unescape(d.IDs)
	if err := validator.New().Struct(d); err != nil {
		return Delimiters{}, fmt.Errorf("invalid delimiters: %w", err)
	}
	return d, nil
}

// Validate checks field presence and that the base URL points at a host
// with a registrable domain (or a local address).
func (a App) Validate() error {
	if err := validator.New().Struct(a); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if a.Kintone.APIToken == "" && (a.Kintone.Username == "" || a.Kintone.Password == "") {
		return ErrNoCredentials
	}
	if _, err := RegisteredDomain(a.Kintone.BaseURL); err != nil {
		return err
	}
	return nil
}

// RegisteredDomain returns the registrable domain of rawURL's host
// (e.g. "example.co.uk" for "https://sub.example.co.uk"). Local hosts and
// IP addresses are returned unchanged.
func RegisteredDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid base url %q: missing host", rawURL)
	}
	if host == "localhost" || net.ParseIP(host) != nil {
		return host, nil
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", fmt.Errorf("invalid base url host %q: %w", host, err)
	}
	return domain, nil
}

// unescape turns the escape sequences allowed in config files into the
// characters they name, so a yaml value of `\n` means a newline.
func unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\r`, "\r", `\t`, "\t").Replace(s)
}
