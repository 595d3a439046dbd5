package countryinfo

import (
	"strings"
	"testing"

	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type CountryInfoSuite struct{}

var _ = Suite(&CountryInfoSuite{})

func row(fields ...string) string {
	for len(fields) < 19 {
		fields = append(fields, "")
	}
	return strings.Join(fields, "\t")
}

var sample = strings.Join([]string{
	"# GeoNames country info",
	"#ISO\tISO3\tISO-Numeric\tfips\tCountry",
	row("AF", "AFG", "004", "AF", "Afghanistan", "Kabul", "647500", "37172386", "AS"),
	row("YE", "YEM", "887", "YM", "Yemen", "Sanaa", "527970", "28498687", "AS"),
	"XX\tshort row",
	row("0", "ZZZ", "000"),
	"",
}, "\n")

func (s *CountryInfoSuite) TestParse(c *C) {
	countries, err := Parse(strings.NewReader(sample))
	c.Assert(err, IsNil)
	c.Assert(countries, HasLen, 2)
	c.Check(countries[0], Equals, Country{ISO2: "AF", ISO3: "AFG", ISONumeric: 4, Name: "Afghanistan", Continent: "AS"})
	c.Check(countries[1].Name, Equals, "Yemen")
}

func (s *CountryInfoSuite) TestISO2Map(c *C) {
	countries, err := Parse(strings.NewReader(sample))
	c.Assert(err, IsNil)
	m := ISO2Map(countries)
	c.Check(m, DeepEquals, map[string]string{"AFG": "AF", "YEM": "YE"})
}

func (s *CountryInfoSuite) TestEmpty(c *C) {
	countries, err := Parse(strings.NewReader(""))
	c.Assert(err, IsNil)
	c.Check(countries, HasLen, 0)
	c.Check(ISO2Map(nil), HasLen, 0)
}
