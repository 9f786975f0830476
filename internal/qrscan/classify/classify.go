// Package classify maps raw QR payloads to a category and an optional
// follow-up action.
package classify

import (
	"regexp"
	"strings"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

const (
	wifiPrefix  = "WIFI:"
	vcardPrefix = "BEGIN:VCARD"

	wifiNotice = "WiFi configuration detected. Manual setup required."
)

var (
	urlPattern   = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{1,3}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,4}[-\s.]?[0-9]{1,9}$`)
	schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	whitespace   = regexp.MustCompile(`\s`)
)

// Classify returns the category of data.  Every input maps to exactly one
// category; anything unrecognised is text.
//
// A WIFI: header wins over incidental pattern matches (a WiFi payload can
// contain an address that looks like an email).  Otherwise URL is tried
// before email and phone, and BEGIN:VCARD only applies when none of them
// match, so a one-line "BEGIN:VCARD;EMAIL:a@b.co" is an email.
func Classify(data string) types.Category {
	if data == "" {
		return types.CategoryText
	}

	switch {
	case strings.HasPrefix(data, wifiPrefix):
		return types.CategoryWiFi
	case urlPattern.MatchString(data):
		return types.CategoryURL
	case emailPattern.MatchString(data):
		return types.CategoryEmail
	case phonePattern.MatchString(whitespace.ReplaceAllString(data, "")):
		return types.CategoryPhone
	case strings.HasPrefix(data, vcardPrefix):
		return types.CategoryVCard
	}
	return types.CategoryText
}

// SuggestedAction returns the follow-up for a classified payload, or nil for
// categories without one (text, vcard).
func SuggestedAction(cat types.Category, data string) *types.Action {
	switch cat {
	case types.CategoryURL:
		target := data
		if !schemePrefix.MatchString(target) {
			target = "https://" + target
		}
		return &types.Action{Label: "Open URL", Kind: types.ActionOpenURL, Target: target}
	case types.CategoryEmail:
		return &types.Action{Label: "Send Email", Kind: types.ActionComposeMail, Target: "mailto:" + data}
	case types.CategoryPhone:
		return &types.Action{Label: "Call", Kind: types.ActionDial, Target: "tel:" + data}
	case types.CategoryWiFi:
		return &types.Action{Label: "WiFi Info", Kind: types.ActionNotice, Target: wifiNotice}
	}
	return nil
}

// Result bundles a payload with its category and action.
type Result struct {
	Data     string         `json:"data"`
	Category types.Category `json:"category"`
	Action   *types.Action  `json:"action,omitempty"`
}

// Describe classifies data and looks up its action in one step.
func Describe(data string) Result {
	cat := Classify(data)
	return Result{Data: data, Category: cat, Action: SuggestedAction(cat, data)}
}
