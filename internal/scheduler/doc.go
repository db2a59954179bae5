// Package scheduler runs named periodic jobs on top of gocron.
//
// Jobs run one at a time: a job due while another is running waits for it to
// finish. A failing or panicking job is logged and counted; it never stops
// the scheduler or the other jobs.
package scheduler
