package pipeline

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"quotescribe/internal"
)

// ExtractEmailFromRaw parses a raw RFC 5322 message and flattens everything
// analyzable into one EmailMessage body: the text part, the HTML part
// stripped to text when no plain part exists, and the text of PDF and XLSX
// attachments. Returns the attachment names alongside for logging.
func ExtractEmailFromRaw(id string, raw []byte) (internal.EmailMessage, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.EmailMessage{}, nil, err
	}

	parts := make([]string, 0, 2)
	if env.Text != "" {
		parts = append(parts, env.Text)
	} else if env.HTML != "" {
		if text := htmlToText(env.HTML); text != "" {
			parts = append(parts, text)
		}
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)

		lower := strings.ToLower(filename)
		switch {
		case strings.HasSuffix(lower, ".pdf"):
			if text := pdfToText(att.Content); text != "" {
				parts = append(parts, text)
			}
		case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
			if text := xlsxToText(att.Content); text != "" {
				parts = append(parts, text)
			}
		}
	}

	msg := internal.EmailMessage{
		ID:      id,
		From:    env.GetHeader("From"),
		Subject: env.GetHeader("Subject"),
		Body:    strings.Join(parts, "\n"),
		Date:    env.GetHeader("Date"),
	}
	return msg, attachmentNames, nil
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func pdfToText(content []byte) string {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}

	parts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func xlsxToText(content []byte) string {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	defer f.Close()

	out := []string{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return strings.Join(out, "\n")
}
