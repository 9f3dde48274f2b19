package filter_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/pkg/filter"
)

var _ = Describe("Filter", func() {
	DescribeTable("renders SQL conditions",
		func(src, expected string) {
			expr, err := filter.Parse([]byte(src))
			Expect(err).ToNot(HaveOccurred())
			Expect(expr.Sql()).To(Equal(expected))
		},
		Entry("string equality", "phase = 'health-wait'", "(phase = 'health-wait')"),
		Entry("double quoted string", `scenario != "HomePage_ReturnsOkStatusCode"`, "(scenario != 'HomePage_ReturnsOkStatusCode')"),
		Entry("quote escaping", `error = "it's down"`, "(error = 'it''s down')"),
		Entry("plain number", "status >= 500", "(status_code >= 500)"),
		Entry("boolean", "passed = false", "(passed = FALSE)"),
		Entry("duration in seconds", "duration > 5s", "(duration_ms > 5000)"),
		Entry("duration in milliseconds", "duration <= 250ms", "(duration_ms <= 250)"),
		Entry("fractional minutes", "duration < 1.5m", "(duration_ms < 90000)"),
		Entry("hours", "duration < 1h", "(duration_ms < 3600000)"),
		Entry("regex", "scenario ~ /^About/", "regexp_matches(scenario, '^About')"),
		Entry("negated regex", "path !~ /services/", "NOT regexp_matches(path, 'services')"),
		Entry("column names", "STATUS_CODE = 200", "(status_code = 200)"),
		Entry("and binds tighter than or",
			"passed = true or phase = 'assert' and status = 200",
			"((passed = TRUE) OR ((phase = 'assert') AND (status_code = 200)))"),
		Entry("brackets",
			"(passed = true or phase = 'assert') and status = 200",
			"(((passed = TRUE) OR (phase = 'assert')) AND (status_code = 200))"),
	)

	It("prints the parsed expression", func() {
		expr, err := filter.Parse([]byte("duration > 1.5s and scenario ~ /Page/"))
		Expect(err).ToNot(HaveOccurred())
		Expect(expr.String()).To(Equal(`((duration > 1.5s) and (scenario ~ /Page/))`))
	})

	DescribeTable("rejects invalid expressions",
		func(src, message string) {
			_, err := filter.Parse([]byte(src))

			var parseErr filter.ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Message).To(ContainSubstring(message))
		},
		Entry("unknown field", "cpu > 2", "unknown field"),
		Entry("missing operator", "phase 'assert'", "expected operator"),
		Entry("missing value", "phase =", "expected value"),
		Entry("unclosed string", "phase = 'assert", "unclosed string"),
		Entry("empty string", "phase = ''", "empty string"),
		Entry("unclosed regex", "scenario ~ /About", "unclosed regex"),
		Entry("invalid regex", "scenario ~ /(/", "invalid regex"),
		Entry("regex operator without regex", "scenario ~ 'About'", "expects a regex"),
		Entry("regex after equality", "path = /services/", "= does not take a regex"),
		Entry("regex after ordering", "status < /5../", "< does not take a regex"),
		Entry("unknown unit", "duration > 5d", "malformed duration unit"),
		Entry("repeated unit", "duration > 5mss", "unknown duration unit"),
		Entry("two dots", "duration > 1.2.3s", "malformed number"),
		Entry("unbalanced brackets", "(passed = true", "expected )"),
		Entry("trailing input", "passed = true false", "expected end of expression"),
		Entry("unexpected character", "passed = true & status = 200", "unexpected char"),
	)

	It("lists the fields a filter may use", func() {
		Expect(filter.Columns()).To(ContainElements("scenario", "phase", "duration", "status", "passed"))
	})
})
