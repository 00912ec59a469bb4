package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// CheckTaskVersion reports whether a task document written for taskVersion can be
// read by a build supporting supportedVersion.
//
// Rules:
//   - an empty task version means the current format
//   - majors must match
//   - the task minor may not exceed the supported minor
//   - patch versions are ignored
//
// Examples with supported 1.2.0: 1.2.7 OK, 1.0 OK, 1.3.0 ERROR, 2.0.0 ERROR.
func CheckTaskVersion(taskVersion, supportedVersion string) error {
	taskVersion = strings.TrimPrefix(strings.TrimSpace(taskVersion), "v")
	supportedVersion = strings.TrimPrefix(supportedVersion, "v")

	if taskVersion == "" {
		return nil
	}

	task, err := semver.NewVersion(taskVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid task version '%s'", taskVersion)
	}

	supported, err := semver.NewVersion(supportedVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid supported version '%s'", supportedVersion)
	}

	if task.Major() != supported.Major() {
		return errors.Newf(errors.ErrCodeInvalidVersion, "major version mismatch: task format is %d.x but this build reads %d.x",
			task.Major(), supported.Major())
	}

	if task.Minor() > supported.Minor() {
		return errors.Newf(errors.ErrCodeInvalidVersion, "task format %d.%d is newer than the supported %d.%d",
			task.Major(), task.Minor(), supported.Major(), supported.Minor())
	}

	return nil
}

// CheckTask checks taskVersion against TaskFormatVersion.
func CheckTask(taskVersion string) error {
	return CheckTaskVersion(taskVersion, TaskFormatVersion)
}
