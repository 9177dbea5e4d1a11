package verifier

import (
	"regexp"
	"strings"

	"github.com/return42/browserid/bundle"
	"github.com/return42/browserid/errors"
)

// translateGlob compiles a shell-style glob into an anchored regular
// expression: * matches any run of characters, ? matches one. When the
// pattern carries no scheme of its own, audiences are allowed to carry one.
func translateGlob(pattern string) (*regexp.Regexp, error) {
	var expr strings.Builder
	expr.WriteString("^")
	if !strings.Contains(pattern, "://") {
		expr.WriteString(`([a-z]+://)?`)
	}
	for _, c := range pattern {
		switch c {
		case '*':
			expr.WriteString(".*")
		case '?':
			expr.WriteString(".")
		default:
			expr.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	expr.WriteString("$")

	return regexp.Compile(expr.String())
}

// compileAudiencePatterns compiles a set of audience globs into one matcher.
// A nil or empty set compiles to a nil matcher, which accepts any audience.
func compileAudiencePatterns(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	alternatives := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := translateGlob(pattern)
		if err != nil {
			return nil, errors.Errorf(errors.KindAudienceMismatch,
				"bad audience pattern %q: %s", pattern, err)
		}
		alternatives = append(alternatives, compiled.String())
	}

	return regexp.MustCompile(strings.Join(alternatives, "|")), nil
}

// checkAudience extracts the audience claimed by a backed assertion and
// checks it against the expectation, before any signature work or network
// traffic happens. A non-empty expected audience is matched as a glob; when
// expected is empty the configured matcher decides; when neither is set any
// audience passes.
func checkAudience(bundled string, expected string, configured *regexp.Regexp) (string, error) {
	_, serializedAssertion, err := bundle.Unbundle(bundled)
	if err != nil {
		return "", err
	}

	assertion, err := bundle.ParseAssertion(serializedAssertion)
	if err != nil {
		return "", err
	}

	matcher := configured
	if expected != "" {
		if matcher, err = translateGlob(expected); err != nil {
			return "", errors.Errorf(errors.KindAudienceMismatch,
				"bad audience pattern %q: %s", expected, err)
		}
	}

	if matcher != nil && !matcher.MatchString(assertion.Audience) {
		return "", errors.Errorf(errors.KindAudienceMismatch,
			"audience %q does not match", assertion.Audience)
	}

	return assertion.Audience, nil
}
