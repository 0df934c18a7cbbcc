package sqlinline

const QInsertGenerationJob = `--sql 3f1c9a52-7b1e-4d0a-9c55-0e2b8f6d4a17
insert into generation_jobs(
  id,
  kind,
  run_id,
  status,
  workbench_id,
  payload,
  result_url,
  error,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  nullif($5::text, ''),
  coalesce($6::jsonb, '{}'::jsonb),
  nullif($7::text, ''),
  nullif($8::text, ''),
  $9::timestamptz,
  $10::timestamptz
);
`

// QResolveGenerationJob only touches pending rows; zero affected rows means
// the job is missing or already terminal.
const QResolveGenerationJob = `--sql 8d27e0b4-51c3-4f6e-a2d9-6b0c1e7f3a58
update generation_jobs
set status = $2::text,
    result_url = nullif($3::text, ''),
    error = nullif($4::text, ''),
    updated_at = $5::timestamptz
where run_id = $1::text
  and status = 'pending';
`

const QSelectGenerationJobByRunID = `--sql c6a4e1f9-0d2b-4b87-9e13-5f8a7c2d0b64
select
  id::text,
  kind,
  run_id,
  status,
  coalesce(workbench_id, ''),
  payload,
  coalesce(result_url, ''),
  coalesce(error, ''),
  created_at,
  updated_at
from generation_jobs
where run_id = $1::text
limit 1;
`
