package repository

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	rounds      INTEGER NOT NULL,
	tolerance   REAL    NOT NULL DEFAULT 0,
	regions     INTEGER NOT NULL,
	failures    INTEGER NOT NULL,
	job_rows    INTEGER NOT NULL,
	task_rows   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS job_complexity (
	run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	job_id      TEXT    NOT NULL,
	region_type TEXT    NOT NULL,
	region_name TEXT    NOT NULL,
	jci         REAL    NOT NULL,
	wage        REAL    NOT NULL,
	title       TEXT,
	employment  INTEGER,
	group_name  TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS job_complexity_region
	ON job_complexity (run_id, region_type, region_name, jci DESC, job_id);

CREATE TABLE IF NOT EXISTS task_complexity (
	run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	task_id     TEXT    NOT NULL,
	region_type TEXT    NOT NULL,
	region_name TEXT    NOT NULL,
	tci         REAL    NOT NULL,
	avg_wage    REAL    NOT NULL,
	title       TEXT,
	group_id    TEXT,
	group_name  TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS task_complexity_region
	ON task_complexity (run_id, region_type, region_name, task_id);
`

const insertRun = `
INSERT INTO runs (id, started_at, finished_at, rounds, tolerance, regions, failures, job_rows, task_rows)
VALUES (:id, :started_at, :finished_at, :rounds, :tolerance, :regions, :failures, :job_rows, :task_rows)`

const insertJob = `
INSERT INTO job_complexity (run_id, seq, job_id, region_type, region_name, jci, wage, title, employment, group_name)
VALUES (:run_id, :seq, :job_id, :region_type, :region_name, :jci, :wage, :title, :employment, :group_name)`

const insertTask = `
INSERT INTO task_complexity (run_id, seq, task_id, region_type, region_name, tci, avg_wage, title, group_id, group_name)
VALUES (:run_id, :seq, :task_id, :region_type, :region_name, :tci, :avg_wage, :title, :group_id, :group_name)`
