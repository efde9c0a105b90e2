package lexful

import (
	"github.com/asecurityteam/runhttp"
	settings "github.com/asecurityteam/settings/v2"
)

// Help generates example environment configuration for the HTTP build
// modes so operators can see every available setting.
func Help() string {
	grp, _ := settings.GroupFromComponent(&runhttp.Component{})
	return settings.ExampleEnvGroups([]settings.Group{&settings.SettingGroup{
		NameValue:   "LEXFUL",
		GroupValues: []settings.Group{grp},
	}})
}
