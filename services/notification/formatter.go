package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mytelmed/models"

	"github.com/go-playground/validator/v10"
)

const (
	FallbackTitle = "MyTelmed Notification"
	FallbackBody  = "You have a new notification"
)

// FormatDefaults are the values applied to fields a payload leaves unset.
type FormatDefaults struct {
	Icon      string
	Badge     string
	TagPrefix string
	Vibrate   []int
}

// DefaultFormatDefaults returns the portal's stock icon, badge, tag prefix and vibration pattern.
func DefaultFormatDefaults() FormatDefaults {
	return FormatDefaults{
		Icon:      "/icons/icon-192x192.png",
		Badge:     "/icons/badge-72x72.png",
		TagPrefix: "mytelmed-",
		Vibrate:   []int{200, 100, 200},
	}
}

// Formatter turns raw push payloads into display-ready notifications.
type Formatter struct {
	defaults FormatDefaults
	validate *validator.Validate
	now      func() time.Time
}

func NewFormatter(defaults FormatDefaults, now func() time.Time) *Formatter {
	if now == nil {
		now = time.Now
	}
	stock := DefaultFormatDefaults()
	defaults.Icon = firstNonEmpty(defaults.Icon, stock.Icon)
	defaults.Badge = firstNonEmpty(defaults.Badge, stock.Badge)
	if defaults.Vibrate == nil {
		defaults.Vibrate = stock.Vibrate
	}
	return &Formatter{
		defaults: defaults,
		validate: validator.New(),
		now:      now,
	}
}

// Parse decodes and validates a raw push payload.
// A payload without title or body yields ErrInvalidPayload; undecodable input yields ErrMalformedPayload.
func (f *Formatter) Parse(raw []byte) (*models.NotificationPayload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	var payload models.NotificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if err := f.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, verrs[0].Field())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &payload, nil
}

// Format resolves every default of a validated payload.
func (f *Formatter) Format(p *models.NotificationPayload) (string, models.NotificationOptions) {
	now := f.now()

	data := p.Data
	data.Timestamp = models.EpochMillis(now.UnixMilli())
	if data.URL == "" {
		data.URL = ResolveURL(data.NotificationType, data)
	}

	tag := p.Tag
	if tag == "" {
		tag = f.defaults.TagPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	}

	opts := models.NotificationOptions{
		Body:               p.Body,
		Icon:               firstNonEmpty(p.Icon, f.defaults.Icon),
		Badge:              firstNonEmpty(p.Badge, f.defaults.Badge),
		Image:              p.Image,
		Tag:                tag,
		Data:               data,
		Actions:            mapActions(p.Actions),
		RequireInteraction: p.RequireInteraction,
		Silent:             p.Silent,
		Vibrate:            []int{},
	}
	if !p.Silent {
		opts.Vibrate = append(opts.Vibrate, f.defaults.Vibrate...)
	}
	return p.Title, opts
}

// Fallback returns the generic notification shown when a push cannot be formatted or displayed.
func (f *Formatter) Fallback() (string, models.NotificationOptions) {
	now := f.now()
	return FallbackTitle, models.NotificationOptions{
		Body:    FallbackBody,
		Icon:    f.defaults.Icon,
		Badge:   f.defaults.Badge,
		Tag:     f.defaults.TagPrefix + "fallback",
		Data:    models.NotificationData{URL: rootPath, Timestamp: models.EpochMillis(now.UnixMilli())},
		Vibrate: append([]int{}, f.defaults.Vibrate...),
	}
}

// mapActions drops actions the platform would reject.
func mapActions(actions []models.NotificationAction) []models.NotificationAction {
	if len(actions) == 0 {
		return nil
	}
	out := make([]models.NotificationAction, 0, len(actions))
	for _, a := range actions {
		if a.Action == "" || a.Title == "" {
			continue
		}
		out = append(out, models.NotificationAction{Action: a.Action, Title: a.Title, Icon: a.Icon})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
