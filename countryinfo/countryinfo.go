// Package countryinfo reads the geonames countryInfo.txt table, which is the
// source of the ISO3 to ISO2 mapping used for pcode prefix conversion.
package countryinfo

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// URL is the canonical location of the geonames country table.
const URL = "https://download.geonames.org/export/dump/countryInfo.txt"

// Country is one row of countryInfo.txt. Only the columns the resolver
// needs are kept.
type Country struct {
	ISO2       string
	ISO3       string
	ISONumeric int16
	Name       string
	Continent  string
}

// Parse reads tab-separated country rows. Comment lines start with '#';
// rows with fewer than the 19 geonames columns are skipped.
func Parse(r io.Reader) ([]Country, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	var countries []Country
	for scanner.Scan() {
		t := scanner.Text()
		if len(t) == 0 || t[0] == '#' {
			continue
		}
		fields := strings.SplitN(t, "\t", 19)
		if len(fields) != 19 || fields[0] == "" || fields[0] == "0" {
			continue
		}
		isoNumeric, _ := strconv.Atoi(fields[2])
		countries = append(countries, Country{
			ISO2:       fields[0],
			ISO3:       fields[1],
			ISONumeric: int16(isoNumeric),
			Name:       fields[4],
			Continent:  fields[8],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading country info: %w", err)
	}
	return countries, nil
}

// ISO2Map returns ISO3 -> ISO2 for the given countries, the shape expected
// by pcodes.Config.CountryISO2.
func ISO2Map(countries []Country) map[string]string {
	out := make(map[string]string, len(countries))
	for _, c := range countries {
		if c.ISO3 != "" && c.ISO2 != "" {
			out[strings.ToUpper(c.ISO3)] = strings.ToUpper(c.ISO2)
		}
	}
	return out
}
