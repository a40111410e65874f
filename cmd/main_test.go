package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"

	"github.com/okian/jci/internal/adapters/tabular"
	"github.com/okian/jci/internal/config"
	"github.com/okian/jci/internal/domain/model"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	return cmd.ExecuteContext(context.Background())
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunCommand(t *testing.T) {
	convey.Convey("Given input tables on disk", t, func() {
		dir := t.TempDir()
		jobs := writeFixture(t, dir, "jobs.csv", "job_id,wage,region_type,region_name\nJ1,100,National,US\nJ2,200,National,US\n")
		rel := writeFixture(t, dir, "relatedness.csv", "job_id,task_id,weight\nJ1,T1,1\nJ2,T1,1\nJ2,T2,1\n")
		out := filepath.Join(dir, "out")
		db := filepath.Join(dir, "jci.db")

		convey.Convey("When running the pipeline from flags", func() {
			err := runCLI("run", "--jobs", jobs, "--relatedness", rel, "--output", out, "--db", db, "--compress", "--log-level", "error")

			convey.Convey("Then the outputs and the store are written", func() {
				convey.So(err, convey.ShouldBeNil)
				_, err := os.Stat(filepath.Join(out, tabular.JobOutput+".gz"))
				convey.So(err, convey.ShouldBeNil)
				m, err := tabular.ReadManifest(filepath.Join(out, tabular.ManifestOutput))
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Outputs.JobRows, convey.ShouldEqual, 2)
				_, err = os.Stat(db)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the relatedness table is missing", func() {
			err := runCLI("run", "--jobs", jobs, "--output", "", "--db", "", "--log-level", "error")

			convey.Convey("Then the run fails with missing input", func() {
				convey.So(errors.Is(err, model.ErrMissingInput), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a flag makes the configuration invalid", func() {
			err := runCLI("run", "--rounds=-1", "--log-level", "error")

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file sets the inputs", func() {
			cfgPath := writeFixture(t, dir, "jci.yaml",
				"log_level: error\njobs_paths: ["+jobs+"]\nrelatedness_path: "+rel+"\noutput_dir: "+out+"\ndatabase_path: \"\"\nrounds: 1\n")
			err := runCLI("run", "--config", cfgPath)

			convey.Convey("Then the run uses them", func() {
				convey.So(err, convey.ShouldBeNil)
				m, err := tabular.ReadManifest(filepath.Join(out, tabular.ManifestOutput))
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Rounds, convey.ShouldEqual, 1)
			})
		})
	})
}

func TestServeCommand(t *testing.T) {
	convey.Convey("Given serve without a database", t, func() {
		err := runCLI("serve", "--db", "", "--log-level", "error")

		convey.Convey("Then it refuses to start", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestRunFlags_Apply(t *testing.T) {
	convey.Convey("Given run flags parsed from the command line", t, func() {
		var rf runFlags
		fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
		rf.register(fs)
		convey.So(fs.Parse([]string{"--rounds", "5", "--states", "Texas,Ohio", "--output", ""}), convey.ShouldBeNil)

		convey.Convey("Then only the set flags override the configuration", func() {
			cfg := config.New()
			convey.So(rf.apply(fs, cfg), convey.ShouldBeNil)
			convey.So(cfg.Rounds, convey.ShouldEqual, 5)
			convey.So(cfg.States, convey.ShouldResemble, []string{"Texas", "Ohio"})
			convey.So(cfg.OutputDir, convey.ShouldBeEmpty)
			convey.So(cfg.DatabasePath, convey.ShouldEqual, "jci.db")
			convey.So(cfg.IncludeNational, convey.ShouldBeTrue)
		})
	})
}
