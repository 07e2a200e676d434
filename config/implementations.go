package config

import (
	"reflect"
	"strconv"
	"strings"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
	en_translations "gopkg.in/go-playground/validator.v9/translations/en"
)

// validate holds the settings and caches for validating implementation entries.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator *ut.UniversalTranslator

func init() {
	validate = validator.New()

	enLocale := en.New()
	translator = ut.New(enLocale, enLocale)

	lang, _ := translator.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, lang)

	// Use TOML key names for errors instead of Go struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Implementation is one resolver under test.
type Implementation struct {
	Name          string        `toml:"name" json:"name" validate:"required"`
	Tags          []string      `toml:"tags" json:"tags,omitempty"`
	Endpoint      string        `toml:"endpoint" json:"endpoint" validate:"required,url"`
	SupportedDIDs SupportedDIDs `toml:"supported_dids" json:"supportedDids"`
}

// SupportedDIDs are the inputs an implementation declares it can resolve. Only Valid is required; the scenarios that
// need one of the other lists are skipped when it is empty.
type SupportedDIDs struct {
	Valid            []ResolutionRequest `toml:"valid" json:"valid" validate:"required,min=1,dive"`
	Deactivated      []string            `toml:"deactivated" json:"deactivated,omitempty" validate:"dive,required"`
	NotFound         []string            `toml:"not_found" json:"notFound,omitempty" validate:"dive,required"`
	DerefURLs        []DerefURL          `toml:"deref_urls" json:"derefUrls,omitempty" validate:"dive"`
	ServiceDerefURLs []ServiceDerefURL   `toml:"service_deref_urls" json:"serviceDerefUrls,omitempty" validate:"dive"`
}

// ResolutionRequest is a DID with the resolution options to send as query parameters.
type ResolutionRequest struct {
	DID               string         `toml:"did" json:"did" validate:"required"`
	ResolutionOptions map[string]any `toml:"resolution_options" json:"resolutionOptions,omitempty"`
}

// DerefURL is a DID URL with the dereferencing options to send as query parameters.
type DerefURL struct {
	DIDURL               string         `toml:"did_url" json:"didUrl" validate:"required"`
	DereferencingOptions map[string]any `toml:"dereferencing_options" json:"dereferencingOptions,omitempty"`
}

// ServiceDerefURL is a DID URL selecting a service endpoint, expected to redirect.
type ServiceDerefURL struct {
	DIDURL string `toml:"did_url" json:"didUrl" validate:"required"`
}

// HasTag reports whether the implementation carries tag.
func (i Implementation) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Registry is the explicit list of implementations a run is given.
type Registry []Implementation

// Match returns the implementations carrying any of tags, in registry order. No tags matches every implementation.
func (r Registry) Match(tags []string) Registry {
	if len(tags) == 0 {
		return append(Registry(nil), r...)
	}
	var matched Registry
	for _, impl := range r {
		for _, tag := range tags {
			if impl.HasTag(tag) {
				matched = append(matched, impl)
				break
			}
		}
	}
	return matched
}

// Validate checks every implementation and returns all problems, translated, in one error.
func (r Registry) Validate() error {
	lang, _ := translator.GetTranslator("en")
	var problems []string
	seen := make(map[string]bool, len(r))
	for i, impl := range r {
		name := impl.Name
		if name == "" {
			name = "#" + strconv.Itoa(i)
		}
		if impl.Name != "" && seen[impl.Name] {
			problems = append(problems, "implementation<"+name+">: name must be unique")
		}
		seen[impl.Name] = true

		if err := validate.Struct(impl); err != nil {
			var verrors validator.ValidationErrors
			if !errors.As(err, &verrors) {
				return errors.Wrapf(err, "validating implementation<%s>", name)
			}
			for _, verror := range verrors {
				problems = append(problems, "implementation<"+name+">: "+verror.Namespace()+": "+verror.Translate(lang))
			}
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
