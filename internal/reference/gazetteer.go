package reference

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/address-extractor/internal/normalizer"
)

//go:embed data/us_zipcodes.csv
var zipcodesCSV []byte

// ZipcodeInfo is one gazetteer row.
type ZipcodeInfo struct {
	Zipcode   string  `json:"zipcode"`
	City      string  `json:"city"`
	StateName string  `json:"state_name"`
	State     string  `json:"state"`
	County    string  `json:"county"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Matches compares city and state case-insensitively; state may be the code
// or the full name. zipcode must already be reduced to its 5-digit form.
func (zi ZipcodeInfo) Matches(city, state, zipcode string) bool {
	st := normalizer.FoldKey(state)
	if st != normalizer.FoldKey(zi.State) && st != normalizer.FoldKey(zi.StateName) {
		return false
	}
	return normalizer.FoldKey(zi.City) == normalizer.FoldKey(city) && zi.Zipcode == zipcode
}

// Gazetteer indexes zipcode rows for the city/state/zip cross-check.
type Gazetteer struct {
	byZip   map[string]ZipcodeInfo
	states  map[string]struct{}
	version string
}

// NewGazetteer indexes infos by zipcode. Later rows win on duplicate zipcodes.
func NewGazetteer(infos []ZipcodeInfo) *Gazetteer {
	g := &Gazetteer{
		byZip:  make(map[string]ZipcodeInfo, len(infos)),
		states: make(map[string]struct{}),
	}
	for _, info := range infos {
		g.byZip[info.Zipcode] = info
		g.states[normalizer.FoldKey(info.State)] = struct{}{}
	}
	g.version = g.computeVersion()
	return g
}

// LoadGazetteerCSV reads rows in the zipcode,city,state_name,state,county,
// latitude,longitude layout. The first row is a header.
func LoadGazetteerCSV(r io.Reader) (*Gazetteer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 7
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("gazetteer csv is empty")
		}
		return nil, fmt.Errorf("read gazetteer header: %w", err)
	}

	var infos []ZipcodeInfo
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read gazetteer row: %w", err)
		}
		info, err := parseZipcodeRecord(record)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return NewGazetteer(infos), nil
}

// LoadGazetteerFile loads a gazetteer CSV from disk.
func LoadGazetteerFile(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer %s: %w", path, err)
	}
	defer f.Close()
	return LoadGazetteerCSV(f)
}

// DefaultGazetteer loads the seed gazetteer shipped with the binary.
func DefaultGazetteer() (*Gazetteer, error) {
	return LoadGazetteerCSV(bytes.NewReader(zipcodesCSV))
}

func parseZipcodeRecord(record []string) (ZipcodeInfo, error) {
	zip := strings.TrimSpace(record[0])
	if len(zip) != 5 || !normalizer.IsNumeric(zip) {
		return ZipcodeInfo{}, fmt.Errorf("invalid zipcode %q", record[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
	if err != nil {
		return ZipcodeInfo{}, fmt.Errorf("zipcode %s: invalid latitude: %w", zip, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
	if err != nil {
		return ZipcodeInfo{}, fmt.Errorf("zipcode %s: invalid longitude: %w", zip, err)
	}
	return ZipcodeInfo{
		Zipcode:   zip,
		City:      strings.TrimSpace(record[1]),
		StateName: strings.TrimSpace(record[2]),
		State:     strings.TrimSpace(record[3]),
		County:    strings.TrimSpace(record[4]),
		Latitude:  lat,
		Longitude: lng,
	}, nil
}

// IsZip5 reports whether token is a known 5-digit zipcode.
func (g *Gazetteer) IsZip5(token string) bool {
	_, ok := g.byZip[token]
	return ok
}

// IsZipDashed accepts the ZIP+4 form "85374-3628" when the first five digits
// are a known zipcode.
func (g *Gazetteer) IsZipDashed(token string) bool {
	return len(token) == 10 &&
		normalizer.IsNumeric(token[:5]) &&
		token[5] == '-' &&
		normalizer.IsNumeric(token[6:]) &&
		g.IsZip5(token[:5])
}

// IsValidPlace cross-checks a city/state/zipcode combination. Only the
// 5-digit prefix of zipcode is compared.
func (g *Gazetteer) IsValidPlace(city, state, zipcode string) bool {
	zip, _, _ := strings.Cut(zipcode, "-")
	info, ok := g.byZip[zip]
	return ok && info.Matches(city, state, zip)
}

// Lookup returns the row registered for a zipcode (5-digit or dashed).
func (g *Gazetteer) Lookup(zipcode string) (ZipcodeInfo, bool) {
	zip, _, _ := strings.Cut(zipcode, "-")
	info, ok := g.byZip[zip]
	return info, ok
}

// HasState reports whether any row uses the state code.
func (g *Gazetteer) HasState(token string) bool {
	_, ok := g.states[normalizer.FoldKey(token)]
	return ok
}

// Len returns the number of zipcodes.
func (g *Gazetteer) Len() int {
	return len(g.byZip)
}

// Infos returns every row ordered by zipcode.
func (g *Gazetteer) Infos() []ZipcodeInfo {
	infos := make([]ZipcodeInfo, 0, len(g.byZip))
	for _, info := range g.byZip {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Zipcode < infos[j].Zipcode })
	return infos
}

// Version identifies the loaded data; caches are invalidated when it changes.
func (g *Gazetteer) Version() string {
	return g.version
}

func (g *Gazetteer) computeVersion() string {
	h := sha256.New()
	for _, info := range g.Infos() {
		fmt.Fprintf(h, "%s|%s|%s|%s\n", info.Zipcode, info.City, info.State, info.StateName)
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil))[:19]
}
