package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string, head []byte) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(head, []byte("PK\x03\x04"))
}

// Parse extracts the selected sheet. If SheetName is empty and SheetIndex <= 0,
// the first sheet is read. SheetIndex is 1-based (Sheet1 == 1).
func (xlsxParser) Parse(name string, content []byte, opt Options) (*Records, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	target, err := resolveSheet(zr, name, opt)
	if err != nil {
		return nil, err
	}
	sheetXML := readZipFile(zr, target)
	if sheetXML == nil {
		return nil, fmt.Errorf("open xlsx: missing worksheet %s", target)
	}

	rr := newSheetRowReader(sheetXML, parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml")))
	header, err := rr.Next()
	if errors.Is(err, io.EOF) || (err == nil && len(header) == 0) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rr.width, rr.limit = len(header), opt.MaxRows

	recs := &Records{Header: header}
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs.Rows = append(recs.Rows, row)
	}
}

// resolveSheet maps the sheet selection in opt to its ZIP entry name. A name
// that matches no sheet is an error listing the available ones; an index
// without a workbook entry falls back to the conventional sheetN.xml path.
func resolveSheet(zr *zip.Reader, name string, opt Options) (string, error) {
	sheets := parseWorkbook(readZipFile(zr, "xl/workbook.xml"))
	rels := parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels"))

	if opt.SheetName != "" {
		for _, s := range sheets {
			if !strings.EqualFold(s.Name, opt.SheetName) {
				continue
			}
			if rel, ok := rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
			break
		}
		available := make([]string, len(sheets))
		for i, s := range sheets {
			available[i] = s.Name
		}
		return "", fmt.Errorf("sheet %q not found in workbook %q (available: %s)",
			opt.SheetName, name, strings.Join(available, ", "))
	}

	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	for _, s := range sheets {
		if s.SheetID != idx {
			continue
		}
		if rel, ok := rels[s.RID]; ok {
			return normalizeRelPath(rel), nil
		}
		break
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

// parseWorkbook lists the <sheet> entries of workbook.xml.
func parseWorkbook(data []byte) []wbSheet {
	var sheets []wbSheet
	eachElement(data, "sheet", func(se xml.StartElement) {
		sheets = append(sheets, wbSheet{
			Name:    attr(se, "name"),
			SheetID: atoiSafe(attr(se, "sheetId")),
			RID:     attr(se, "id"), // r: namespace
		})
	})
	return sheets
}

// parseRelationships returns map[r:id]Target.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	eachElement(data, "Relationship", func(se xml.StartElement) {
		if id, target := attr(se, "Id"), attr(se, "Target"); id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

// eachElement calls fn for every start element named local in data. Decode
// errors end the walk; the caller sees whatever was found before them.
func eachElement(data []byte, local string, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			fn(se)
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// parseSharedStrings returns the shared string table. Rich text runs are
// joined; phonetic hints (<rPh>) are skipped.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out      []string
		buf      strings.Builder
		inT, rPh bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = !rPh
			case "rPh":
				rPh = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				rPh = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRowReader streams the rows of one worksheet. Before width is set rows
// come back as wide as their last cell. After it is set, rows are padded to
// width, blank cells past width are dropped and a value past width is a
// ragged row. With limit > 0, at most limit rows are returned after width
// is set.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	width  int
	limit  int
	read   int
	line   int
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next row, or io.EOF after the last row or the limit.
func (r *sheetRowReader) Next() ([]string, error) {
	if r.limit > 0 && r.read >= r.limit {
		return nil, io.EOF
	}
	var row []string
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read worksheet: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "row":
				row = nil
				// Rows carry their spreadsheet number; blank rows are absent.
				if n := atoiSafe(attr(se, "r")); n > 0 {
					r.line = n
				} else {
					r.line++
				}
			case "c":
				col := colIndexFromRef(attr(se, "r"))
				if col < 0 {
					col = len(row)
				}
				val, err := r.readCellValue(attr(se, "t"))
				if err != nil {
					return nil, err
				}
				if r.width > 0 && col >= r.width {
					if strings.TrimSpace(val) != "" {
						return nil, &RowError{Line: r.line, Err: fmt.Errorf("%w: expected %d, saw %d", ErrRaggedRow, r.width, col+1)}
					}
					continue
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = val
			}
		case xml.EndElement:
			if se.Name.Local != "row" {
				continue
			}
			if len(row) < r.width {
				row = append(row, make([]string, r.width-len(row))...)
			}
			if r.width > 0 {
				r.read++
			}
			return row, nil
		}
	}
}

// readCellValue reads until the end of <c> and returns its text: the <v>
// value, or the joined <t> runs of an inline string, resolved by cell type.
func (r *sheetRowReader) readCellValue(typ string) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", fmt.Errorf("read worksheet cell: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				inText = false
			case "c":
				return r.cellText(sb.String(), typ), nil
			}
		case xml.CharData:
			if inText {
				sb.Write(se)
			}
		}
	}
}

// cellText resolves raw cell content by its t attribute. Booleans become
// true/false and error cells (#DIV/0! and friends) read as missing.
func (r *sheetRowReader) cellText(raw, typ string) string {
	switch typ {
	case "s":
		if raw == "" {
			return ""
		}
		if idx := atoiSafe(raw); idx < len(r.shared) {
			return r.shared[idx]
		}
		return ""
	case "b":
		switch strings.TrimSpace(raw) {
		case "1":
			return "true"
		case "0":
			return "false"
		}
	case "e":
		return ""
	}
	return raw
}

// colIndexFromRef maps refs like "C12" to a 0-based column index (2).
// A ref without letters yields -1.
func colIndexFromRef(ref string) int {
	i := 0
	for i < len(ref) {
		c := ref[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			i++
			continue
		}
		break
	}
	s := strings.ToUpper(ref[:i])
	idx := 0
	for j := 0; j < len(s); j++ {
		idx = idx*26 + int(s[j]-'A'+1)
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may carry a leading slash ("/xl/worksheets/sheet1.xml"); ZIP entries don't.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
