// Command score_answers transcribes and grades each pending answer recording
// once, then exits. Run it from cron.
package main

import (
	"os"

	"github.com/yungbote/mockgrader/internal/app"
	pipeline "github.com/yungbote/mockgrader/internal/jobs/pipeline/score_answers"
)

func main() {
	os.Exit(app.RunJob(pipeline.JobType, os.Args[1:]))
}
