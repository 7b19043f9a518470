package grading

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

const (
	DefaultResultsBaseURL = "https://app.naatininja.com/mock-test"
	DefaultBrandName      = "NAATI Ninja"
	DefaultSupportEmail   = "support@naatininja.com"
	DefaultLogoURL        = "https://app.naatininja.com/logo.png"
)

type ResultEmail struct {
	Link         string
	Passed       bool
	BrandName    string
	SupportEmail string
	LogoURL      string
}

// ResultLink is base/<testID>; the test id is path-escaped.
func ResultLink(baseURL, testID string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultResultsBaseURL
	}
	return base + "/" + url.PathEscape(strings.TrimSpace(testID))
}

func ResultSubject(passed bool, brand string) string {
	if strings.TrimSpace(brand) == "" {
		brand = DefaultBrandName
	}
	if passed {
		return fmt.Sprintf("🎉 Congratulations! You Passed Your %s Test", brand)
	}
	return fmt.Sprintf("📊 Keep Going! Your %s Test Results Are In", brand)
}

// RenderResultEmail returns the subject and HTML body of a result notification.
func RenderResultEmail(in ResultEmail) (subject, html string, err error) {
	if strings.TrimSpace(in.BrandName) == "" {
		in.BrandName = DefaultBrandName
	}
	if strings.TrimSpace(in.SupportEmail) == "" {
		in.SupportEmail = DefaultSupportEmail
	}
	if strings.TrimSpace(in.LogoURL) == "" {
		in.LogoURL = DefaultLogoURL
	}
	if strings.TrimSpace(in.Link) == "" {
		return "", "", fmt.Errorf("result email: empty link")
	}

	var buf bytes.Buffer
	if err := resultEmailTemplate.Execute(&buf, in); err != nil {
		return "", "", fmt.Errorf("render result email: %w", err)
	}
	return ResultSubject(in.Passed, in.BrandName), buf.String(), nil
}

var resultEmailTemplate = template.Must(template.New("result_email").Parse(`<html>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background: #ffffff; padding: 20px; border-radius: 8px; border: 1px solid #ddd;">
    <div style="text-align: center; padding: 20px 0; color: black;">
      <img src="{{.LogoURL}}" alt="{{.BrandName}}" style="width: 150px; margin-bottom: 20px;">
{{- if .Passed}}
      <h1 style="color: #333;">Fantastic News, You Passed! 🎉</h1>
{{- else}}
      <h1 style="color: #333;">Don't Give Up, Keep Going! 💪</h1>
{{- end}}
    </div>
    <div style="padding: 20px; font-size: 16px; color: #333;">
{{- if .Passed}}
      <p>Great job! Your test has been graded and you have <b>passed</b>. All your effort has paid off. 🎊</p>
      <p>Click below to view your detailed results:</p>
{{- else}}
      <p>Your test has been graded and unfortunately you didn't pass this time. This is just one step in your journey.</p>
      <p>Click below to review your results and see where you can improve:</p>
{{- end}}
      <div style="text-align: center; margin-top: 20px;">
        <a href="{{.Link}}" style="padding: 12px 24px; background-color: {{if .Passed}}#f7941e{{else}}#099f9e{{end}}; color: white; text-decoration: none; border-radius: 5px; font-size: 16px; display: inline-block;">View Results</a>
      </div>
{{- if .Passed}}
      <p style="margin-top: 20px;">Keep up the great work, and best of luck with your journey ahead!</p>
{{- else}}
      <p style="margin-top: 20px;">Progress takes time and every attempt teaches you something. We believe in you! 🚀</p>
{{- end}}
    </div>
    <hr style="border: none; border-top: 1px solid #ddd; margin: 20px 0;">
    <p style="font-size: 12px; text-align: center; color: #777;">This is an automated email. Please do not reply. If you need assistance, contact us at <a href="mailto:{{.SupportEmail}}" style="color: #099f9e; text-decoration: none;">{{.SupportEmail}}</a>.</p>
  </div>
</body>
</html>
`))
