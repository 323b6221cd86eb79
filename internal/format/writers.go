package format

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
)

var errHeaderMissing = errors.New("row written before header")

// xmlWriter emits
//
//	<results>
//	  <head><column name="a"/></head>
//	  <row><value column="a">1</value></row>
//	</results>
type xmlWriter struct {
	enc     *xml.Encoder
	columns []string
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{enc: xml.NewEncoder(w)}
}

func (x *xmlWriter) Header(columns []string) error {
	x.columns = columns
	if err := x.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return err
	}
	if err := x.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "results"}}); err != nil {
		return err
	}
	head := xml.StartElement{Name: xml.Name{Local: "head"}}
	if err := x.enc.EncodeToken(head); err != nil {
		return err
	}
	for _, c := range columns {
		col := xml.StartElement{Name: xml.Name{Local: "column"}, Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: c}}}
		if err := x.enc.EncodeToken(col); err != nil {
			return err
		}
		if err := x.enc.EncodeToken(col.End()); err != nil {
			return err
		}
	}
	return x.enc.EncodeToken(head.End())
}

func (x *xmlWriter) Row(values []any) error {
	if x.columns == nil {
		return errHeaderMissing
	}
	row := xml.StartElement{Name: xml.Name{Local: "row"}}
	if err := x.enc.EncodeToken(row); err != nil {
		return err
	}
	for i, v := range values {
		attrs := []xml.Attr{{Name: xml.Name{Local: "column"}, Value: columnName(x.columns, i)}}
		text, ok := Text(v)
		if !ok {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "null"}, Value: "true"})
		}
		el := xml.StartElement{Name: xml.Name{Local: "value"}, Attr: attrs}
		if err := x.enc.EncodeToken(el); err != nil {
			return err
		}
		if ok && text != "" {
			if err := x.enc.EncodeToken(xml.CharData(text)); err != nil {
				return err
			}
		}
		if err := x.enc.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	if err := x.enc.EncodeToken(row.End()); err != nil {
		return err
	}
	return nil
}

func (x *xmlWriter) Close() error {
	if x.columns == nil {
		if err := x.Header([]string{}); err != nil {
			return err
		}
	}
	if err := x.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "results"}}); err != nil {
		return err
	}
	return x.enc.Close()
}

func columnName(columns []string, i int) string {
	if i < len(columns) {
		return columns[i]
	}
	return ""
}

// jsonWriter emits {"columns":[...],"rows":[[...],...]} one row at a time.
type jsonWriter struct {
	w       *bufio.Writer
	started bool
	rows    int
}

func newJSONWriter(w io.Writer) *jsonWriter {
	return &jsonWriter{w: bufio.NewWriter(w)}
}

func (j *jsonWriter) Header(columns []string) error {
	if columns == nil {
		columns = []string{}
	}
	cols, err := json.Marshal(columns)
	if err != nil {
		return err
	}
	j.started = true
	if _, err := j.w.WriteString(`{"columns":`); err != nil {
		return err
	}
	if _, err := j.w.Write(cols); err != nil {
		return err
	}
	_, err = j.w.WriteString(`,"rows":[`)
	return err
}

func (j *jsonWriter) Row(values []any) error {
	if !j.started {
		return errHeaderMissing
	}
	out := make([]any, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			out[i] = string(b)
			continue
		}
		out[i] = v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if j.rows > 0 {
		if err := j.w.WriteByte(','); err != nil {
			return err
		}
	}
	j.rows++
	_, err = j.w.Write(b)
	return err
}

func (j *jsonWriter) Close() error {
	if !j.started {
		if err := j.Header(nil); err != nil {
			return err
		}
	}
	if _, err := j.w.WriteString("]}\n"); err != nil {
		return err
	}
	return j.w.Flush()
}

type csvWriter struct {
	w       *csv.Writer
	started bool
}

func newCSVWriter(w io.Writer) *csvWriter {
	return &csvWriter{w: csv.NewWriter(w)}
}

func (c *csvWriter) Header(columns []string) error {
	c.started = true
	return c.w.Write(columns)
}

func (c *csvWriter) Row(values []any) error {
	if !c.started {
		return errHeaderMissing
	}
	record := make([]string, len(values))
	for i, v := range values {
		record[i], _ = Text(v)
	}
	return c.w.Write(record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
