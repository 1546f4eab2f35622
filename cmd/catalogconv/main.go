// catalogconv converts SQL dumps of an item table into the YAML item
// catalog read by gridsim.
//
// Usage:
//
//	go run ./cmd/catalogconv [-sql path] [-out path] [-default-stack n]
//
// Expected columns per INSERT row (0-indexed):
//
//	0:type 1:name 2:category 3:width 4:height 5:stackable 6:max_stack
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/helluna/gridinv/internal/data"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML output structs
// ---------------------------------------------------------------------------

type itemListYAML struct {
	Items []itemEntryYAML `yaml:"items"`
}

type itemEntryYAML struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name,omitempty"`
	Category  string `yaml:"category,omitempty"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Stackable bool   `yaml:"stackable,omitempty"`
	MaxStack  int    `yaml:"max_stack,omitempty"`
}

// ---------------------------------------------------------------------------
// SQL parsing helpers
// ---------------------------------------------------------------------------

// parseValues extracts column values from a single INSERT INTO ... VALUES (...) line.
func parseValues(line string) []string {
	upper := strings.ToUpper(line)
	idx := strings.Index(upper, "VALUES")
	if idx == -1 {
		return nil
	}
	rest := line[idx+6:]
	start := strings.IndexByte(rest, '(')
	if start == -1 {
		return nil
	}
	end := strings.LastIndexByte(rest, ')')
	if end == -1 || end <= start {
		return nil
	}
	inner := rest[start+1 : end]

	var values []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		if inQuote {
			if ch == '\'' {
				if i+1 < len(inner) && inner[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inQuote = false
				}
			} else {
				cur.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '\'':
			inQuote = true
		case ',':
			values = append(values, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	values = append(values, strings.TrimSpace(cur.String()))

	for i, v := range values {
		if strings.EqualFold(v, "null") {
			values[i] = ""
		}
	}
	return values
}

// parseInserts returns every parsed INSERT row in a SQL dump.
func parseInserts(raw string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "INSERT INTO") {
			continue
		}
		if vals := parseValues(line); vals != nil {
			rows = append(rows, vals)
		}
	}
	return rows
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

func parseBool01(s string) bool { return s != "" && s != "0" }

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// convert maps dump rows to catalog entries. Stackable rows without a
// max_stack get defaultStack; rows missing columns are skipped.
func convert(rows [][]string, defaultStack int) (itemListYAML, int) {
	var out itemListYAML
	skipped := 0
	for _, r := range rows {
		if len(r) < 7 || r[0] == "" {
			skipped++
			continue
		}
		e := itemEntryYAML{
			Type:      string(data.NormalizeType(r[0])),
			Name:      r[1],
			Category:  r[2],
			Width:     parseInt(r[3]),
			Height:    parseInt(r[4]),
			Stackable: parseBool01(r[5]),
			MaxStack:  parseInt(r[6]),
		}
		if !e.Stackable {
			e.MaxStack = 0
		} else if e.MaxStack < 1 {
			e.MaxStack = defaultStack
		}
		out.Items = append(out.Items, e)
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].Type < out.Items[j].Type })
	return out, skipped
}

// render marshals the catalog and checks it loads back as a valid item table.
func render(list itemListYAML, comment string) ([]byte, error) {
	body, err := yaml.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if _, err := data.ParseItemTable(body); err != nil {
		return nil, fmt.Errorf("converted catalog is invalid: %w", err)
	}
	var b strings.Builder
	if comment != "" {
		b.WriteString(comment)
		b.WriteString("\n\n")
	}
	b.Write(body)
	return []byte(b.String()), nil
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func main() {
	sqlPath := flag.String("sql", "items.sql", "SQL dump with the item table")
	outPath := flag.String("out", "data/items.yaml", "YAML catalog output")
	defaultStack := flag.Int("default-stack", 20, "max_stack for stackable rows that leave it empty")
	flag.Parse()

	raw, err := os.ReadFile(*sqlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	list, skipped := convert(parseInserts(string(raw)), *defaultStack)
	out, err := render(list, "# Item catalog - converted from "+*sqlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  items: %d entries, %d skipped\n", len(list.Items), skipped)
	fmt.Println("Done!")
}
