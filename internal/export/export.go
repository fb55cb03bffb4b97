package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"

	"github.com/Matiyaa/find-a-workinator/internal/models"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

// ParseFormat accepts a format name, defaulting to table.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON, FormatMarkdown, FormatTSV:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q", value)
	}
}

// FormatFromPath guesses a format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, true
	case strings.HasSuffix(lower, ".tsv"):
		return FormatTSV, true
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, true
	case strings.HasSuffix(lower, ".md"):
		return FormatMarkdown, true
	}
	return "", false
}

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func WriteOffers(w io.Writer, offers []models.StoredOffer, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, offers)
	case FormatCSV:
		return writeCSV(w, offers, ',')
	case FormatTSV:
		return writeCSV(w, offers, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, offers)
	default:
		return writeTable(w, offers, opts)
	}
}

func writeJSON(w io.Writer, offers []models.StoredOffer) error {
	if offers == nil {
		offers = []models.StoredOffer{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(offers)
}

func writeCSV(w io.Writer, offers []models.StoredOffer, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(Header()); err != nil {
		return err
	}
	for _, offer := range offers {
		if err := writer.Write(csvRow(offer)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, offers []models.StoredOffer, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, offer := range offers {
		fmt.Fprintln(tw, strings.Join(tableRow(offer, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, offers []models.StoredOffer) error {
	if len(offers) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, offer := range offers {
		urlLine := "  URL: -"
		if link := present(offer.OfferLink); link != "" {
			urlLine = fmt.Sprintf("  URL: [Open offer](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", safe(offer.Position), safe(offer.Company)),
			fmt.Sprintf("  Location: %s", safe(offer.City)),
			urlLine,
		}
		if salary := present(offer.Salary); salary != "" {
			lines = append(lines, fmt.Sprintf("  Salary: %s", salary))
		}
		if added := present(offer.DateAdded); added != "" {
			lines = append(lines, fmt.Sprintf("  Added: %s", added))
		}
		if !offer.DateScraped.IsZero() {
			lines = append(lines, fmt.Sprintf("  Scraped: %s", offer.DateScraped.Format(time.RFC3339)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Header lists the exported columns, named after the stored fields.
func Header() []string {
	return []string{
		"offer_id",
		"company",
		"position",
		"city",
		"salary",
		"offer_link",
		"date_added",
		"date_scraped",
		"search_city",
		"search_distance",
	}
}

func csvRow(offer models.StoredOffer) []string {
	scraped := ""
	if !offer.DateScraped.IsZero() {
		scraped = offer.DateScraped.Format(time.RFC3339)
	}
	return []string{
		offer.OfferID,
		offer.Company,
		offer.Position,
		offer.City,
		offer.Salary,
		offer.OfferLink,
		offer.DateAdded,
		scraped,
		offer.SearchCity,
		strconv.Itoa(offer.SearchDistance),
	}
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

// present hides the not-available sentinel.
func present(value string) string {
	if !models.Present(value) {
		return ""
	}
	return safe(value)
}

func tableHeader() []string {
	return []string{
		"company",
		"position",
		"location",
		"salary",
		"url",
	}
}

func tableRow(offer models.StoredOffer, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := present(offer.OfferLink)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		if opts.ColorEnabled {
			displayURL = output.String(displayURL).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	return []string{
		safe(offer.Company),
		safe(offer.Position),
		safe(offer.City),
		safe(offer.Salary),
		displayURL,
	}
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
