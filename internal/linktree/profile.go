package linktree

import "strings"

// profileFields is the property schema of the profile singleton record.
// Image-bearing fields split across companion properties the same way list
// item fields do. background_value holds either a color or an embedded
// image, so it is validated only when the background type says image.
var profileFields = []FieldSpec{
	{Property: "profile_title", Kind: FieldText},
	{Property: "picture_url", Kind: FieldImage, Parts: defaultSplitParts},
	{Property: "font_family", Kind: FieldText},
	{Property: "text_color", Kind: FieldText},
	{Property: "background_type", Kind: FieldSelect},
	{Property: "background_value", Kind: FieldText, Parts: defaultSplitParts},
	{Property: "button_bg_color", Kind: FieldText},
	{Property: "button_text_color", Kind: FieldText},
	{Property: "seo_title", Kind: FieldText},
	{Property: "seo_description", Kind: FieldText},
	{Property: "favicon_url", Kind: FieldImage},
	{Property: "section_order", Kind: FieldText},
}

// ProfileProperties builds the full property set of the profile singleton
// update, under the same codec, validator and splitting rules as list items.
func ProfileProperties(payload UpdatePayload) map[string]any {
	backgroundValue := payload.Appearance.Background.Value
	if payload.Appearance.Background.Type == "image" {
		backgroundValue = ImageValue(backgroundValue)
	}
	values := map[string]any{
		"profile_title":     payload.Profile.Title,
		"picture_url":       payload.Profile.PictureURL,
		"font_family":       payload.Appearance.FontFamily,
		"text_color":        payload.Appearance.TextColor,
		"background_type":   fallback(payload.Appearance.Background.Type, "solid"),
		"background_value":  backgroundValue,
		"button_bg_color":   payload.Appearance.Button.BackgroundColor,
		"button_text_color": payload.Appearance.Button.TextColor,
		"seo_title":         payload.SEO.Title,
		"seo_description":   payload.SEO.Description,
		"favicon_url":       payload.SEO.FaviconURL,
		"section_order":     strings.Join(payload.SectionOrder, ","),
	}
	props := map[string]any{}
	for _, field := range profileFields {
		writeField(props, field, values[field.Property])
	}
	return props
}

// ProfileOperation builds the singleton update. The profile record is never
// created or archived by the engine; it must already exist.
func ProfileOperation(payload UpdatePayload) Operation {
	return Operation{
		Kind:       OpUpdate,
		Container:  "profile",
		RecordID:   payload.ProfilePageID,
		Properties: ProfileProperties(payload),
	}
}
