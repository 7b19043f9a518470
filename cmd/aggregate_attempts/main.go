package main

import (
	"os"

	"github.com/yungbote/mockgrader/internal/app"
	pipeline "github.com/yungbote/mockgrader/internal/jobs/pipeline/aggregate_attempts"
)

func main() {
	os.Exit(app.RunJob(pipeline.JobType, os.Args[1:]))
}
