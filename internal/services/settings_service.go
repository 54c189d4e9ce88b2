// Package services – SettingsService
//
// This file implements guild settings reads (through the optional Redis
// cache) and the validate-then-upsert used by the admin API. Only fields
// present in a patch are written; explicit nulls clear nullable fields.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/cache"
	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/repo"
)

// Template length bounds, in characters.
const (
	TemplateMinLen = 1
	TemplateMaxLen = 1900
)

// validate checks patches and ids outside of HTTP binding. It shares its
// rules with the gin engine through RegisterValidation.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	RegisterValidation(v)
	return v
}

// RegisterValidation installs the settings rules on v: the snowflake
// alias, JSON field names in errors, and unwrapping of the optional patch
// fields.
func RegisterValidation(v *validator.Validate) {
	v.RegisterAlias("snowflake", "number,min=17,max=20")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(OptionalString).Value
	}, OptionalString{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		o := f.Interface().(OptionalBool)
		if o.Present && o.Value == nil {
			// fails the boolean rule
			return "null"
		}
		return o.Value
	}, OptionalBool{})
}

// IsSnowflake reports whether s looks like a platform identifier.
func IsSnowflake(s string) bool { return validate.Var(s, "snowflake") == nil }

// OptionalString is a patch field that distinguishes absent, null, and set.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON marks the field present; JSON null leaves Value nil.
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected string or null")
	}
	o.Value = &s
	return nil
}

// OptionalBool is a patch field that distinguishes absent, null, and set.
type OptionalBool struct {
	Present bool
	Value   *bool
}

// UnmarshalJSON marks the field present; JSON null leaves Value nil.
func (o *OptionalBool) UnmarshalJSON(b []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected boolean")
	}
	o.Value = &v
	return nil
}

// SettingsPatch is the body of a settings upsert. Absent and null fields
// skip their rules; simpleMode is not nullable.
type SettingsPatch struct {
	ModmailChannelID OptionalString `json:"modmailChannelId" binding:"omitempty,snowflake"`
	GreetingMessage  OptionalString `json:"greetingMessage" binding:"omitempty,min=1,max=1900"`
	FarewellMessage  OptionalString `json:"farewellMessage" binding:"omitempty,min=1,max=1900"`
	SimpleMode       OptionalBool   `json:"simpleMode" binding:"omitempty,boolean"`
	AlertRoleID      OptionalString `json:"alertRoleId" binding:"omitempty,snowflake"`
}

// FieldError is a validation failure on one patch field. It unwraps to
// ErrInvalidSettings.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Reason }

// Unwrap lets errors.Is match ErrInvalidSettings.
func (e *FieldError) Unwrap() error { return ErrInvalidSettings }

// AsFieldError converts the first validator failure in err to a
// FieldError. Other errors are returned unchanged.
func AsFieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	reason := "is invalid"
	switch fe.Tag() {
	case "snowflake":
		reason = "must be a snowflake id"
	case "min", "max":
		reason = fmt.Sprintf("length must be between %d and %d", TemplateMinLen, TemplateMaxLen)
	case "boolean":
		reason = "must be a boolean"
	}
	return &FieldError{Field: fe.Field(), Reason: reason}
}

// Validate checks every present field.
func (p SettingsPatch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return AsFieldError(err)
	}
	return nil
}

// apply copies present fields onto s and returns the touched columns.
func (p SettingsPatch) apply(s *domain.GuildSettings) []string {
	var cols []string
	if p.ModmailChannelID.Present {
		s.ModmailChannelID = p.ModmailChannelID.Value
		cols = append(cols, "modmail_channel_id")
	}
	if p.GreetingMessage.Present {
		s.GreetingMessage = p.GreetingMessage.Value
		cols = append(cols, "greeting_message")
	}
	if p.FarewellMessage.Present {
		s.FarewellMessage = p.FarewellMessage.Value
		cols = append(cols, "farewell_message")
	}
	if p.SimpleMode.Present && p.SimpleMode.Value != nil {
		s.SimpleMode = *p.SimpleMode.Value
		cols = append(cols, "simple_mode")
	}
	if p.AlertRoleID.Present {
		s.AlertRoleID = p.AlertRoleID.Value
		cols = append(cols, "alert_role_id")
	}
	return cols
}

// SettingsService reads and writes guild settings.
type SettingsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache is optional; a nil cache always misses.
	Cache *cache.SettingsCache
}

// Get returns a guild's stored settings, or ErrSettingsNotFound.
func (s *SettingsService) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	if got, ok := s.Cache.Get(ctx, guildID); ok {
		return got, nil
	}
	got, err := repo.GetSettings(ctx, s.DB, guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	_ = s.Cache.Set(ctx, got)
	return got, nil
}

// Effective returns the guild's settings, or defaults when it was never
// configured. The relay reads settings through this.
func (s *SettingsService) Effective(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	got, err := s.Get(ctx, guildID)
	if errors.Is(err, ErrSettingsNotFound) {
		return &domain.GuildSettings{GuildID: guildID}, nil
	}
	return got, err
}

// Update validates patch and upserts it, returning the stored settings.
func (s *SettingsService) Update(ctx context.Context, guildID string, patch SettingsPatch) (*domain.GuildSettings, error) {
	tr := otel.Tracer("services/SettingsService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("guild.id", guildID)),
	)
	defer span.End()

	if !IsSnowflake(guildID) {
		return nil, &FieldError{Field: "guildId", Reason: "must be a snowflake id"}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	row := &domain.GuildSettings{GuildID: guildID}
	cols := patch.apply(row)
	out, err := repo.UpsertSettings(ctx, s.DB, row, cols)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	_ = s.Cache.Invalidate(ctx, guildID)
	return out, nil
}
