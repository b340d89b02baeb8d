package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotify/api/internal/branding"
	"github.com/quotify/api/internal/quote"
)

// AddItem appends a fresh one-off row and returns it.
func (c *Controller) AddItem(ctx context.Context) (quote.LineItem, quote.Document, error) {
	item := quote.NewLineItem()
	doc, err := c.apply(ctx, "add_item", func(s *quote.State) error {
		s.Items.Add(item)
		return nil
	})
	return item, doc, err
}

// UpdateItem applies patch to one row.
func (c *Controller) UpdateItem(ctx context.Context, id quote.ItemID, patch quote.ItemPatch) (quote.Document, error) {
	return c.apply(ctx, "update_item", func(s *quote.State) error {
		_, err := s.Items.Update(id, patch)
		return err
	})
}

// RemoveItem deletes one row by id.
func (c *Controller) RemoveItem(ctx context.Context, id quote.ItemID) (quote.Document, error) {
	return c.apply(ctx, "remove_item", func(s *quote.State) error {
		if !s.Items.Remove(id) {
			return fmt.Errorf("removing item %s: %w", id, quote.ErrItemNotFound)
		}
		return nil
	})
}

// SetParty edits the sender or client card.
func (c *Controller) SetParty(ctx context.Context, role Role, patch PartyPatch) (quote.Document, error) {
	return c.apply(ctx, "set_"+string(role), func(s *quote.State) error {
		switch role {
		case RoleSender:
			patch.apply(&s.Sender)
		case RoleClient:
			patch.apply(&s.Client)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
		return nil
	})
}

// SetMeta edits the document header.
func (c *Controller) SetMeta(ctx context.Context, patch MetaPatch) (quote.Document, error) {
	return c.apply(ctx, "set_meta", func(s *quote.State) error {
		patch.apply(&s.Meta)
		s.Meta.Currency = strings.ToUpper(strings.TrimSpace(s.Meta.Currency))
		return nil
	})
}

// SetSettings edits the document options.
func (c *Controller) SetSettings(ctx context.Context, patch SettingsPatch) (quote.Document, error) {
	return c.apply(ctx, "set_settings", func(s *quote.State) error {
		patch.apply(&s.Settings)
		return nil
	})
}

// SetNotes replaces the free-form notes.
func (c *Controller) SetNotes(ctx context.Context, notes string) (quote.Document, error) {
	return c.apply(ctx, "set_notes", func(s *quote.State) error {
		s.Notes = notes
		return nil
	})
}

// SetAccentColor stores the accent in canonical #RRGGBB form.
func (c *Controller) SetAccentColor(ctx context.Context, hex string) (quote.Document, error) {
	return c.apply(ctx, "set_accent", func(s *quote.State) error {
		normalized, err := branding.NormalizeHex(hex)
		if err != nil {
			return validationError("primaryColor", err.Error())
		}
		s.Branding.PrimaryColor = normalized
		return nil
	})
}

// SetLogo replaces the logo and caches its brightness. An image that cannot
// be decoded is still stored, with the neutral fallback brightness.
func (c *Controller) SetLogo(ctx context.Context, data []byte, contentType string) (quote.Document, error) {
	bri, err := branding.LogoBrightness(data)
	if err != nil {
		c.logger.Warn("logo brightness unavailable, using fallback",
			"error", err,
			"fallback", branding.FallbackBrightness,
		)
	}
	return c.apply(ctx, "set_logo", func(s *quote.State) error {
		s.Branding.Logo = quote.EncodeDataURL(contentType, data)
		s.Branding.LogoBrightness = &bri
		return nil
	})
}

// ClearLogo removes the logo.
func (c *Controller) ClearLogo(ctx context.Context) (quote.Document, error) {
	return c.apply(ctx, "clear_logo", func(s *quote.State) error {
		s.Branding.Logo = ""
		s.Branding.LogoBrightness = nil
		return nil
	})
}

// Reset discards everything and starts over from defaults with the example row.
func (c *Controller) Reset(ctx context.Context) (quote.Document, error) {
	return c.apply(ctx, "reset", func(s *quote.State) error {
		*s = quote.DefaultState(c.now())
		s.Items = quote.Items{quote.DefaultLineItem()}
		return nil
	})
}
