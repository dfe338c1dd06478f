package datarecording

import (
	"os"
	"strings"
	"time"
)

const runInfoTable = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

type runInfo struct {
	Property string
	Value    string
}

// RunRecorder records how a simulation run was started and when it ended.
type RunRecorder struct {
	recorder DataRecorder
	entries  []runInfo
}

// NewRunRecorder creates the run information table.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	recorder.CreateTable(runInfoTable, runInfo{})

	return &RunRecorder{recorder: recorder}
}

// Start notes the start time, the command line and the working directory.
func (r *RunRecorder) Start() {
	r.Note("Start Time", time.Now().Format(timeLayout))
	r.Note("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		r.Note("Working Directory", cwd)
	}
}

// Note adds a property of the run.
func (r *RunRecorder) Note(property, value string) {
	r.entries = append(r.entries, runInfo{Property: property, Value: value})
}

// End writes the notes together with the end time.
func (r *RunRecorder) End() {
	r.Note("End Time", time.Now().Format(timeLayout))

	for _, entry := range r.entries {
		r.recorder.InsertData(runInfoTable, entry)
	}

	r.entries = nil

	r.recorder.Flush()
}
