package sqlinline

// SQLite variants of the job statements. Timestamps are RFC 3339 text and
// placeholders are positional.

const QInsertGenerationJobSQLite = `--sql 5e9b2c71-3a4d-4f08-b6e1-7c2d9a0f4b13
INSERT INTO generation_jobs (id, kind, run_id, status, workbench_id, payload, result_url, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const QResolveGenerationJobSQLite = `--sql a1f06d38-9c2e-4b75-8d4a-2e6f1b0c7d92
UPDATE generation_jobs
SET status = ?, result_url = ?, error = ?, updated_at = ?
WHERE run_id = ? AND status = 'pending'
`

const QSelectGenerationJobByRunIDSQLite = `--sql 7b3e5f20-6d1a-4c94-a0b8-9f2e4d6c1a57
SELECT id, kind, run_id, status, workbench_id, payload, result_url, error, created_at, updated_at
FROM generation_jobs WHERE run_id = ?
`
