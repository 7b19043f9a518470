// Command finalize_attempts totals fully scored free-tier attempts and emails
// each learner their result.
package main

import (
	"os"

	"github.com/yungbote/mockgrader/internal/app"
	pipeline "github.com/yungbote/mockgrader/internal/jobs/pipeline/finalize_attempts"
)

func main() {
	os.Exit(app.RunJob(pipeline.JobType, os.Args[1:]))
}
