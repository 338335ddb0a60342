package buildinfo

const Graffiti = "  __                     _ \n / _|_ __ ___  ___   __| |\n| |_| '__/ __|/ _ \\ / _` |\n|  _| |  \\__ \\ (_) | (_| |\n|_| |_|  |___/\\___/ \\__,_|\n\n"

// Set at link time with -ldflags "-X".
var (
	BuildTag string = "v0.0.0"
	Name     string = "frsod"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

var Info buildinfo
