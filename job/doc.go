// Package job defines the job entity, its lifecycle states, the wire
// codec for the BullMQ-compatible hash layout, and the store contract.
//
// # Job Entity
//
// A [Job] represents a unit of work. It carries an opaque JSON payload and
// progresses through a state machine:
//
//	waiting → active → completed
//	waiting → active → waiting → ...   (retry, attempts remaining)
//	waiting → active → failed          (attempts exhausted)
//
// State is not stored as a hash field: the wire protocol derives it from
// which per-queue set currently holds the job's ID. The State field on the
// Go struct reflects the set the job was read from.
//
// # Wire Layout
//
// Jobs are stored as Redis hashes with the protocol's field names (name,
// data, opts, timestamp, atm, ats, processedOn, finishedOn, failedReason,
// returnvalue). [ToFields] and [FromFields] convert between the struct and
// that layout. Fields the protocol defines but this engine does not use
// (delay, priority, stalled counters) are written with neutral values and
// ignored on read, so records written by other implementations decode
// without error.
//
// # Defining a Job Handler
//
// Workers take a single [Handler]. To route by job name, build the handler
// from a [Registry] of typed definitions:
//
//	reg := job.NewRegistry()
//	job.RegisterDefinition(reg, job.NewDefinition("welcome",
//	    func(ctx context.Context, p WelcomeInput) error {
//	        return mailer.Send(p.To)
//	    },
//	))
//	w := worker.New("mail", store, reg.Route())
package job
