package shower

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted in calibration date tags, e.g. "[ 2004-05-01 12:00:00 ]".
var dateTagLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const configTagPrefix = "config="

type dbLine struct {
	number int
	fields []string
	tag    string
	isTag  bool
}

type dbReader struct {
	name  string
	lines []dbLine
	pos   int
}

// ReadDatabaseFile opens a detector text database and reads the descriptor
// valid at date. See ReadDatabase.
func ReadDatabaseFile(filename string, date time.Time, config string) (*Descriptor, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ConfigError{Reason: "cannot open database file", Err: &ErrOpenFile{Filename: filename, Err: err}}
	}
	defer file.Close()
	return ReadDatabase(file, filename, date, config)
}

// ReadDatabase parses a detector text database. Text after '#' is a comment.
// The file holds, in order: "ncols nrows"; module lines "crate slot first
// last" ended by a line with a negative crate; one channel map value per
// module channel; origin "x y z"; size "x y z"; rotation angle in degrees;
// center of block 1 "x y"; block spacing "dx dy"; emin; and finally the
// pedestals and gains. Calibrations may be split in sections tagged with
// "[ date ]" or "[ config=name ]": the latest date not after date wins, then
// the section for config, then the untagged block.
func ReadDatabase(r io.Reader, name string, date time.Time, config string) (*Descriptor, error) {
	reader, err := newDBReader(r, name)
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{}
	header, err := reader.line("number of columns and rows")
	if err != nil {
		return nil, err
	}
	if len(header.fields) < 2 {
		return nil, reader.errorf("expected number of columns and rows")
	}
	if desc.NCols, err = strconv.Atoi(header.fields[0]); err != nil {
		return nil, reader.errorf("invalid number of columns %q", header.fields[0])
	}
	if desc.NRows, err = strconv.Atoi(header.fields[1]); err != nil {
		return nil, reader.errorf("invalid number of rows %q", header.fields[1])
	}
	if desc.NCols <= 0 || desc.NRows <= 0 {
		return nil, reader.errorf("illegal number of rows or columns: %d %d", desc.NRows, desc.NCols)
	}

	if desc.Modules, err = reader.modules(); err != nil {
		return nil, err
	}
	if len(desc.Modules) == 0 {
		return nil, reader.errorf("no modules defined in detector map")
	}

	// The map is one stream of values, a line may hold channels of
	// several modules.
	nchan := 0
	for i, m := range desc.Modules {
		if m.NChan() <= 0 {
			return nil, reader.errorf("no channels defined for module %d", i)
		}
		nchan += m.NChan()
	}
	chanMap, err := reader.ints(nchan, "channel map")
	if err != nil {
		return nil, err
	}
	desc.ChanMap = make([][]int, len(desc.Modules))
	for i, m := range desc.Modules {
		desc.ChanMap[i] = chanMap[:m.NChan():m.NChan()]
		chanMap = chanMap[m.NChan():]
	}

	origin, err := reader.floats(3, "detector origin")
	if err != nil {
		return nil, err
	}
	desc.Origin = Vec3{origin[0], origin[1], origin[2]}
	size, err := reader.floats(3, "detector size")
	if err != nil {
		return nil, err
	}
	desc.Size = [3]float64{size[0], size[1], size[2]}
	angle, err := reader.floats(1, "rotation angle")
	if err != nil {
		return nil, err
	}
	desc.Angle = angle[0]
	block, err := reader.floats(2, "block 1 position")
	if err != nil {
		return nil, err
	}
	desc.BlockX, desc.BlockY = block[0], block[1]
	spacing, err := reader.floats(2, "block spacing")
	if err != nil {
		return nil, err
	}
	desc.DX, desc.DY = spacing[0], spacing[1]
	emin, err := reader.floats(1, "emin")
	if err != nil {
		return nil, err
	}
	desc.EMin = emin[0]

	if err := reader.seekCalibration(date, config); err != nil {
		return nil, err
	}
	nelem := desc.NElem()
	if desc.Pedestals, err = reader.values(nelem, "pedestals"); err != nil {
		return nil, err
	}
	if desc.Gains, err = reader.values(nelem, "gains"); err != nil {
		return nil, err
	}
	return desc, nil
}

func newDBReader(r io.Reader, name string) (*dbReader, error) {
	reader := &dbReader{name: name}
	scanner := bufio.NewScanner(r)
	number := 0
	for scanner.Scan() {
		number++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "[") {
			end := strings.IndexByte(text, ']')
			if end < 0 {
				return nil, &ConfigError{Reason: fmt.Sprintf("%s:%d: unterminated tag %q", name, number, text)}
			}
			tag := strings.TrimSpace(text[1:end])
			reader.lines = append(reader.lines, dbLine{number: number, tag: tag, isTag: true})
			continue
		}
		reader.lines = append(reader.lines, dbLine{number: number, fields: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{Reason: "error reading " + name, Err: err}
	}
	return reader, nil
}

func (r *dbReader) errorf(format string, args ...any) error {
	line := "EOF"
	if r.pos < len(r.lines) {
		line = strconv.Itoa(r.lines[r.pos].number)
	} else if r.pos > 0 && r.pos-1 < len(r.lines) {
		line = strconv.Itoa(r.lines[r.pos-1].number)
	}
	return &ConfigError{Reason: fmt.Sprintf("%s:%s: %s", r.name, line, fmt.Sprintf(format, args...))}
}

// line returns the next data line. Tags are not expected before the
// calibration block.
func (r *dbReader) line(what string) (dbLine, error) {
	if r.pos >= len(r.lines) {
		return dbLine{}, r.errorf("unexpected end of file reading %s", what)
	}
	line := r.lines[r.pos]
	if line.isTag {
		return dbLine{}, r.errorf("unexpected tag [%s] reading %s", line.tag, what)
	}
	r.pos++
	return line, nil
}

// floats reads the first n values of the next line.
func (r *dbReader) floats(n int, what string) ([]float64, error) {
	line, err := r.line(what)
	if err != nil {
		return nil, err
	}
	if len(line.fields) < n {
		r.pos--
		return nil, r.errorf("expected %d values for %s, got %d", n, what, len(line.fields))
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		if values[i], err = strconv.ParseFloat(line.fields[i], 64); err != nil {
			r.pos--
			return nil, r.errorf("invalid %s value %q", what, line.fields[i])
		}
	}
	return values, nil
}

func (r *dbReader) modules() ([]ModuleSpec, error) {
	var modules []ModuleSpec
	for {
		line, err := r.line("detector map")
		if err != nil {
			return nil, err
		}
		crate, err := strconv.Atoi(line.fields[0])
		if err != nil {
			r.pos--
			return nil, r.errorf("invalid crate %q in detector map", line.fields[0])
		}
		if crate < 0 {
			return modules, nil
		}
		if len(line.fields) < 4 {
			r.pos--
			return nil, r.errorf("detector map line needs crate, slot, first and last channel")
		}
		var values [3]int
		for i := range values {
			if values[i], err = strconv.Atoi(line.fields[i+1]); err != nil {
				r.pos--
				return nil, r.errorf("invalid detector map value %q", line.fields[i+1])
			}
		}
		modules = append(modules, ModuleSpec{Crate: crate, Slot: values[0], First: values[1], Last: values[2]})
	}
}

// tokens reads n whitespace separated values spanning as many lines as
// needed. A line is never shared between two blocks.
func (r *dbReader) tokens(n int, what string) ([]string, error) {
	tokens := make([]string, 0, n)
	for len(tokens) < n {
		line, err := r.line(what)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, line.fields...)
	}
	if len(tokens) > n {
		r.pos--
		return nil, r.errorf("expected %d values for %s, got %d", n, what, len(tokens))
	}
	return tokens, nil
}

func (r *dbReader) ints(n int, what string) ([]int, error) {
	tokens, err := r.tokens(n, what)
	if err != nil {
		return nil, err
	}
	values := make([]int, n)
	for i, token := range tokens {
		v, err := strconv.Atoi(token)
		if err != nil || v < 0 {
			return nil, r.errorf("invalid %s value %q", what, token)
		}
		values[i] = v
	}
	return values, nil
}

func (r *dbReader) values(n int, what string) ([]float64, error) {
	tokens, err := r.tokens(n, what)
	if err != nil {
		return nil, err
	}
	values := make([]float64, n)
	for i, token := range tokens {
		if values[i], err = strconv.ParseFloat(token, 64); err != nil {
			return nil, r.errorf("invalid %s value %q", what, token)
		}
	}
	return values, nil
}

// seekCalibration positions the reader at the first line of the calibration
// section that applies to date and config.
func (r *dbReader) seekCalibration(date time.Time, config string) error {
	bestDate := -1
	var best time.Time
	configTag := -1
	for i := r.pos; i < len(r.lines); i++ {
		line := r.lines[i]
		if !line.isTag {
			continue
		}
		if name, ok := strings.CutPrefix(line.tag, configTagPrefix); ok {
			if config != "" && configTag < 0 && strings.TrimSpace(name) == config {
				configTag = i
			}
			continue
		}
		tagDate, err := ParseDate(line.tag)
		if err != nil {
			r.pos = i
			return r.errorf("unrecognized tag [%s]", line.tag)
		}
		if date.IsZero() || tagDate.After(date) {
			continue
		}
		if bestDate < 0 || tagDate.After(best) {
			bestDate = i
			best = tagDate
		}
	}

	switch {
	case bestDate >= 0:
		r.pos = bestDate + 1
	case configTag >= 0:
		r.pos = configTag + 1
	default:
		if r.pos < len(r.lines) && r.lines[r.pos].isTag {
			return r.errorf("no calibration for date %s and config %q", date.Format(time.DateTime), config)
		}
	}
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("%s: reading calibration from line %d", r.name, r.lines[min(r.pos, len(r.lines)-1)].number)
		logger.Info(message, "database")
	}
	return nil
}

// ParseDate accepts the same layouts as the calibration date tags.
func ParseDate(tag string) (time.Time, error) {
	var err error
	for _, layout := range dateTagLayouts {
		var t time.Time
		if t, err = time.Parse(layout, tag); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
