// Package build runs build targets and fires the run, emit and done hooks
// around each build command.
//
// Plugins are applied to every target before any command starts, so all
// plugins of a session know about each other before the first hook fires.
// emit fires only after a successful build; done always fires.
//
// A target with an output directory is built into a sibling staging
// directory (<output>.staging-*). The command finds it through the {output}
// argument placeholder or the OUTPUTKEEPER_OUTPUT_DIR environment variable.
// emit fires while the output directory still holds the previous build, and
// the staged files are promoted into it afterwards. A failed build leaves the
// output directory untouched.
package build
