package generators

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/feliixx/mockbuilder/model"
)

// available faker methods
const (
	MethodBS             = "BS"
	MethodCity           = "City"
	MethodColor          = "Color"
	MethodCompanyName    = "CompanyName"
	MethodCompanySuffix  = "CompanySuffix"
	MethodCountry        = "Country"
	MethodDomainName     = "DomainName"
	MethodDomainSuffix   = "DomainSuffix"
	MethodEmail          = "Email"
	MethodFirstName      = "FirstName"
	MethodIPv4Address    = "IPv4Address"
	MethodJobTitle       = "JobTitle"
	MethodLastName       = "LastName"
	MethodName           = "Name"
	MethodNamePrefix     = "NamePrefix"
	MethodNameSuffix     = "NameSuffix"
	MethodPhoneNumber    = "PhoneNumber"
	MethodPhoneFormatted = "PhoneFormatted"
	MethodPostCode       = "PostCode"
	MethodState          = "State"
	MethodStateAbbr      = "StateAbbr"
	MethodStreetAddress  = "StreetAddress"
	MethodStreetName     = "StreetName"
	MethodStreetSuffix   = "StreetSuffix"
	MethodURL            = "URL"
	MethodUserAgent      = "UserAgent"
	MethodUserName       = "UserName"
	MethodWord           = "Word"
)

var fakerMethods = map[string]func(f *gofakeit.Faker) string{
	MethodBS:             (*gofakeit.Faker).BS,
	MethodCity:           (*gofakeit.Faker).City,
	MethodColor:          (*gofakeit.Faker).Color,
	MethodCompanyName:    (*gofakeit.Faker).Company,
	MethodCompanySuffix:  (*gofakeit.Faker).CompanySuffix,
	MethodCountry:        (*gofakeit.Faker).Country,
	MethodDomainName:     (*gofakeit.Faker).DomainName,
	MethodDomainSuffix:   (*gofakeit.Faker).DomainSuffix,
	MethodEmail:          (*gofakeit.Faker).Email,
	MethodFirstName:      (*gofakeit.Faker).FirstName,
	MethodIPv4Address:    (*gofakeit.Faker).IPv4Address,
	MethodJobTitle:       (*gofakeit.Faker).JobTitle,
	MethodLastName:       (*gofakeit.Faker).LastName,
	MethodName:           (*gofakeit.Faker).Name,
	MethodNamePrefix:     (*gofakeit.Faker).NamePrefix,
	MethodNameSuffix:     (*gofakeit.Faker).NameSuffix,
	MethodPhoneNumber:    (*gofakeit.Faker).Phone,
	MethodPhoneFormatted: (*gofakeit.Faker).PhoneFormatted,
	MethodPostCode:       (*gofakeit.Faker).Zip,
	MethodState:          (*gofakeit.Faker).State,
	MethodStateAbbr:      (*gofakeit.Faker).StateAbr,
	MethodStreetAddress:  (*gofakeit.Faker).Street,
	MethodStreetName:     (*gofakeit.Faker).StreetName,
	MethodStreetSuffix:   (*gofakeit.Faker).StreetSuffix,
	MethodURL:            (*gofakeit.Faker).URL,
	MethodUserAgent:      (*gofakeit.Faker).UserAgent,
	MethodUserName:       (*gofakeit.Faker).Username,
	MethodWord:           (*gofakeit.Faker).Word,
}

// FakerMethods returns the names accepted by the 'faker' constraint.
func FakerMethods() []string {
	names := make([]string, 0, len(fakerMethods))
	for name := range fakerMethods {
		names = append(names, name)
	}
	return names
}

// Generator for creating random string using faker library. Values are
// resized to fit in [`minLength`, `maxLength`]
type fakerGenerator struct {
	base
	f         func(f *gofakeit.Faker) string
	fit       func(g *fakerGenerator, s string) string
	minLength int
	maxLength int
}

func newFakerGenerator(prop *model.Property, base base) (Generator, error) {
	c := &prop.Constraints
	g := &fakerGenerator{
		base: base,
		fit:  fitString,
	}
	g.minLength, g.maxLength = c.LengthBounds()

	switch c.Format {
	case model.FormatEmail:
		g.f, g.fit = (*gofakeit.Faker).Email, fitEmail
		if g.maxLength < len(shortestEmail) {
			return nil, fmt.Errorf("%w: %s is an email of at most %d bytes", ErrLengthTooSmall, prop.Name, g.maxLength)
		}
	case model.FormatURL:
		g.f, g.fit = (*gofakeit.Faker).URL, fitURL
		if g.maxLength < len(shortestURL) {
			return nil, fmt.Errorf("%w: %s is an url of at most %d bytes", ErrLengthTooSmall, prop.Name, g.maxLength)
		}
	case model.FormatPhone:
		g.f, g.fit = (*gofakeit.Faker).Phone, fitPhone
	}
	// an explicit method wins over the format, but values are still
	// fitted according to the format
	if c.Faker != "" {
		method, ok := fakerMethods[c.Faker]
		if !ok {
			return nil, fmt.Errorf("%w '%s'", ErrUnknownFakerMethod, c.Faker)
		}
		g.f = method
	}
	return g, nil
}

func (g *fakerGenerator) Value() any {
	return g.fit(g, g.f(g.faker))
}

const (
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	digits       = "0123456789"

	shortestEmail = "a@x.io"
	shortestURL   = "http://x.io"
)

func (g *fakerGenerator) letters(n int) string {
	return randomString(g.pcg32, n, lowerLetters)
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func fitString(g *fakerGenerator, s string) string {
	if len(s) > g.maxLength {
		s = strings.TrimSpace(truncate(s, g.maxLength))
	}
	if len(s) < g.minLength {
		s += g.letters(g.minLength - len(s))
	}
	return s
}

// fitEmail keeps a single '@' with a non empty local part and a domain
// containing a dot
func fitEmail(g *fakerGenerator, s string) string {
	local, domain, _ := strings.Cut(s, "@")
	local = strings.Trim(strings.Map(emailRune, local), ".")
	if local == "" {
		local = g.letters(1)
	}
	if strings.Map(emailRune, domain) != domain || !strings.Contains(domain, ".") {
		domain = "x.io"
	}
	if len(local)+1+len(domain) > g.maxLength {
		domain = "x.io"
		if room := g.maxLength - 1 - len(domain); room < len(local) {
			local = strings.TrimRight(local[:max(room, 1)], ".")
		}
	}
	if missing := g.minLength - (len(local) + 1 + len(domain)); missing > 0 {
		local += g.letters(missing)
	}
	return local + "@" + domain
}

// emailRune drops the characters that would need quoting in an address
func emailRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		return r
	}
	return -1
}

// fitURL keeps a scheme and a host
func fitURL(g *fakerGenerator, s string) string {
	if len(s) > g.maxLength {
		const prefix, suffix = "http://", ".io"
		host := g.maxLength - len(prefix) - len(suffix)
		s = prefix + g.letters(max(host, 1)) + suffix
	}
	if missing := g.minLength - len(s); missing > 0 {
		s += "/" + g.letters(max(missing-1, 0))
	}
	return s
}

// fitPhone keeps digits only
func fitPhone(g *fakerGenerator, s string) string {
	s = strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s)
	if len(s) > g.maxLength {
		s = s[:g.maxLength]
	}
	if missing := g.minLength - len(s); missing > 0 {
		s += randomString(g.pcg32, missing, digits)
	}
	return s
}
