package cron

import "time"

// ScheduleType defines how a scheduled cast is triggered.
type ScheduleType string

const (
	ScheduleAt    ScheduleType = "at"    // specific time of day (e.g. "14:30")
	ScheduleEvery ScheduleType = "every" // interval (e.g. "30m", "2h")
	ScheduleCron  ScheduleType = "cron"  // cron expression (e.g. "0 */2 * * *")
)

type Schedule struct {
	Type       ScheduleType `json:"type"`
	Expression string       `json:"expression"` // cron expr, time, or duration
}

// Job is one recurring cast. When the schedule fires, Text is posted as if
// the originating chat had sent /cast, and the result is reported there.
type Job struct {
	ID        string    `json:"id"`
	Schedule  Schedule  `json:"schedule"`
	Text      string    `json:"text"`
	Channel   string    `json:"channel"`
	ChatID    string    `json:"chatId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists jobs to a JSON file.
type Store struct {
	Jobs []Job `json:"jobs"`
}
