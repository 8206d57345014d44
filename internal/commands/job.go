package commands

import "context"

// Job is a command running in the background. Its result is available once Done
// is closed.
type Job struct {
	done  chan struct{}
	reply Reply
	err   error
}

func newJob() *Job {
	return &Job{done: make(chan struct{})}
}

func (j *Job) finish(reply Reply, err error) {
	j.reply, j.err = reply, err
	close(j.done)
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finished or ctx is done.
func (j *Job) Wait(ctx context.Context) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-j.done:
		return j.reply, j.err
	}
}
