// Package scheduler turns daily and interval triggers into engine tasks.
//
// Cron only decides when; every activation is enqueued into the task engine
// with its nominal time and misfire grace, and the engine runs it.
package scheduler
