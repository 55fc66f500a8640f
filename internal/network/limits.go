// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

// In this file: API limits configuration.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// TierLimit is the limit configuration for a single Slack API tier.
type TierLimit struct {
	// Boost is the number of events per minute added to the base tier
	// value.
	Boost uint `toml:"boost" validate:"lte=1000"`
	// Burst is the number of events allowed to happen at once.
	Burst uint `toml:"burst" validate:"gte=1,lte=100"`
}

// RequestLimit sets the page sizes of the paginated API requests.
type RequestLimit struct {
	// Channels is the page size of the conversations.list call.
	Channels int `toml:"channels" validate:"gte=1,lte=1000"`
	// Replies is the page size of the conversations.replies call.
	Replies int `toml:"replies" validate:"gte=1,lte=1000"`
}

// Limits is the API limits configuration.  The limits only pace the calls,
// they never cause a request to be retried.
type Limits struct {
	// Tier2 is used by search.messages and conversations.list.
	Tier2 TierLimit `toml:"tier_2"`
	// Tier3 is used by conversations.history, .info and .replies.
	Tier3 TierLimit `toml:"tier_3"`
	// Tier4 is used by users.info and chat.getPermalink.
	Tier4   TierLimit    `toml:"tier_4"`
	Request RequestLimit `toml:"per_request"`
}

// DefLimits is the default limits configuration.
var DefLimits = Limits{
	Tier2: TierLimit{
		Boost: 0,
		Burst: 1,
	},
	Tier3: TierLimit{
		Boost: 20,
		Burst: 3,
	},
	Tier4: TierLimit{
		Boost: 10,
		Burst: 5,
	},
	Request: RequestLimit{
		Channels: 200,
		Replies:  200,
	},
}

var (
	validate *validator.Validate
	// ErrTranslations is the translator for the validation errors.
	ErrTranslations ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	english := en.New()
	uni := ut.New(english, english)
	ErrTranslations, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, ErrTranslations); err != nil {
		panic(err)
	}
}

// ErrInvalidLimits is returned when the limits fail the validation.
var ErrInvalidLimits = errors.New("invalid API limits")

// Validate checks that the limits are within the allowed ranges.  The
// validation messages are translated to English and joined.
func (l Limits) Validate() error {
	return ValidateStruct(l, ErrInvalidLimits)
}

// ValidateStruct validates the struct v by its "validate" tags.  Validation
// errors are translated with ErrTranslations, sorted, and reported wrapped in
// sentinel.
func ValidateStruct(v any, sentinel error) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var vErr validator.ValidationErrors
	if !errors.As(err, &vErr) {
		return err
	}
	tr := vErr.Translate(ErrTranslations)
	msgs := make([]string, 0, len(tr))
	for _, m := range tr {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", sentinel, strings.Join(msgs, "; "))
}

// Apply applies the non-zero values from other to the limits and validates
// the result.  On validation error, l is not modified.
func (l *Limits) Apply(other Limits) error {
	upd := *l
	upd.Tier2 = upd.Tier2.apply(other.Tier2)
	upd.Tier3 = upd.Tier3.apply(other.Tier3)
	upd.Tier4 = upd.Tier4.apply(other.Tier4)
	if other.Request.Channels != 0 {
		upd.Request.Channels = other.Request.Channels
	}
	if other.Request.Replies != 0 {
		upd.Request.Replies = other.Request.Replies
	}
	if err := upd.Validate(); err != nil {
		return err
	}
	*l = upd
	return nil
}

func (t TierLimit) apply(other TierLimit) TierLimit {
	if other.Boost != 0 {
		t.Boost = other.Boost
	}
	if other.Burst != 0 {
		t.Burst = other.Burst
	}
	return t
}

// ReadLimits decodes the limits from r.  Unknown keys are rejected, so that
// a typo in the file does not go unnoticed.  The values read are applied on
// top of DefLimits.
func ReadLimits(r io.Reader) (Limits, error) {
	var fromFile Limits
	md, err := toml.NewDecoder(r).Decode(&fromFile)
	if err != nil {
		return Limits{}, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		return Limits{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidLimits, strings.Join(keys, ", "))
	}
	l := DefLimits
	if err := l.Apply(fromFile); err != nil {
		return Limits{}, err
	}
	return l, nil
}

// LoadLimits reads the limits from the TOML file filename.
func LoadLimits(filename string) (Limits, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Limits{}, err
	}
	defer f.Close()
	l, err := ReadLimits(f)
	if err != nil {
		return Limits{}, fmt.Errorf("%s: %w", filename, err)
	}
	return l, nil
}

// WriteLimits writes the limits to w in TOML format.
func WriteLimits(w io.Writer, l Limits) error {
	return toml.NewEncoder(w).Encode(l)
}
