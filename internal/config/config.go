// Package config handles configuration loading and shared data structures.
package config

import (
	"os"
	"time"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/geo"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultFeatureID = "calculate-polygon"
	DefaultZoom      = 12
	DefaultTimeout   = 10 * time.Second
	DefaultRetries   = 3
	DefaultWelcome   = "你可以使用绘图工具来画一个多边形，也可以按顺时针或逆时针输入一组坐标，点击计算即可得到这个多边形的面积😋"
)

// DefaultCenter is the initial map position.
var DefaultCenter = geo.Coordinate{Lng: -91.874, Lat: 42.76}

// DefaultStyles are offered when the configuration lists none.
var DefaultStyles = []Style{
	{Name: "satellite", URL: "mapbox://styles/mapbox/satellite-v9"},
	{Name: "streets", URL: "mapbox://styles/mapbox/streets-v11"},
}

// Config represents the root configuration file structure.
type Config struct {
	Center      *geo.Coordinate `yaml:"center,omitempty" json:"center"`
	Attribution string          `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	AccessToken string          `yaml:"access_token,omitempty" json:"access_token,omitempty"`
	Welcome     string          `yaml:"welcome,omitempty" json:"welcome,omitempty"`
	FeatureID   string          `yaml:"feature_id,omitempty" json:"feature_id"`
	Style       string          `yaml:"style,omitempty" json:"style"`
	StorePath   string          `yaml:"store,omitempty" json:"-"`
	Styles      []Style         `yaml:"styles,omitempty" json:"styles"`
	Shapes      []Shape         `yaml:"shapes,omitempty" json:"-"`
	AreaService AreaService     `yaml:"area_service,omitempty" json:"-"`
	Zoom        float64         `yaml:"zoom,omitempty" json:"zoom"`
	Unit        area.Unit       `yaml:"unit,omitempty" json:"unit"`
}

// Style is a selectable base map style.
type Style struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// AreaService configures the optional legacy SOAP area calculator.
type AreaService struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Retries *uint64       `yaml:"retries,omitempty"`
	Scale   float64       `yaml:"scale,omitempty"`
}

// Enabled reports whether a service URL is configured.
func (a AreaService) Enabled() bool {
	return a.URL != ""
}

// Shape is a named coordinate list for batch processing.
type Shape struct {
	Unit   *area.Unit `yaml:"unit,omitempty"`
	Name   string     `yaml:"name"`
	Points []string   `yaml:"points"`
}

// Default returns a normalized configuration with no file behind it.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Normalize()
	return &cfg, nil
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.FeatureID == "" {
		c.FeatureID = DefaultFeatureID
	}
	if c.Welcome == "" {
		c.Welcome = DefaultWelcome
	}
	if c.Center == nil || !c.Center.Valid() {
		center := DefaultCenter
		c.Center = &center
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if !c.Unit.Valid() {
		c.Unit = area.SquareMeters
	}

	if len(c.Styles) == 0 {
		c.Styles = append([]Style(nil), DefaultStyles...)
	}
	if st, ok := c.FindStyle(c.Style); ok {
		c.Style = st.URL
	} else {
		c.Style = c.Styles[0].URL
	}

	if c.AreaService.Timeout <= 0 {
		c.AreaService.Timeout = DefaultTimeout
	}
	if c.AreaService.Retries == nil {
		retries := uint64(DefaultRetries)
		c.AreaService.Retries = &retries
	}
	if c.AreaService.Scale == 0 {
		c.AreaService.Scale = area.DefaultScale
	}
}

// FindStyle looks a style up by URL or name.
func (c *Config) FindStyle(s string) (Style, bool) {
	if s == "" {
		return Style{}, false
	}
	for _, st := range c.Styles {
		if st.URL == s || st.Name == s {
			return st, true
		}
	}
	return Style{}, false
}

// StyleURLs returns the URLs of the configured styles.
func (c *Config) StyleURLs() []string {
	out := make([]string, 0, len(c.Styles))
	for _, st := range c.Styles {
		out = append(out, st.URL)
	}
	return out
}
