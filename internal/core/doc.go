// Package core holds the dataset lifecycle of the equipment viewer.
//
// It sits between the transports (internal/web) and the record store and is
// independent of HTTP.
//
// # Sessions and managers
//
// Each authenticated session gets a [Manager], created on first use by the
// [Registry] and dropped on logout or by the idle reaper. A Manager keeps
// the session's last few datasets, the selected dataset and its records.
// Operations on one Manager never overlap: each holds a one-slot semaphore
// for its whole duration, and a caller whose context ends while waiting
// gets ctx.Err().
//
// # Ingest
//
// [Service.Upload] checks the file, parses it with package ingest under the
// [UploadLimiter], and hands the result to [Manager.Ingest]. Persistence is
// two writes: the dataset row with its frozen averages, then every record in
// one batch. A failure in the second write leaves the dataset row in place;
// the returned [PersistError] carries its ID.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. See
// error_messages.go for the code reference.
package core
