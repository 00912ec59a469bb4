package version

// Version is the build version, set with
// -ldflags "-X github.com/rxtech-lab/feedback-trader/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// TaskFormatVersion is the newest task document format this build reads.
const TaskFormatVersion = "1.0.0"

func GetVersion() string {
	return Version
}
