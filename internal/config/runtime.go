package config

// Overrides are values set on the command line. They take precedence over
// the file and are never written back.
type Overrides struct {
	Port    int
	Host    string
	Debug   bool
	Watch   *bool
	Article string
}

// Apply copies the set overrides onto c.
func (o Overrides) Apply(c *Config) {
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.Host != "" {
		c.Server.Host = o.Host
	}
	if o.Debug {
		c.Server.Debug = true
	}
	if o.Watch != nil {
		c.Features.HotReload = *o.Watch
	}
	if o.Article != "" {
		c.Article = o.Article
	}
}
