package sqlinline

const QCreateBannerJobs = `--sql 53ca200a-1608-4a6c-a2c5-7eca43b24eee
create table if not exists banner_jobs (
    id text primary key,
    status text not null,
    progress integer not null default 0,
    current_step text not null default '',
    total_letters integer not null default 0,
    completed_letters integer not null default 0,
    error_message text not null default '',
    files jsonb not null default '{}'::jsonb,
    request jsonb not null default '{}'::jsonb,
    run_stamp text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    completed_at timestamptz
);
create index if not exists banner_jobs_created_at_idx on banner_jobs (created_at);
`

const QInsertBannerJob = `--sql e1a62414-dac1-4276-9910-feb520c812fb
insert into banner_jobs (
    id, status, progress, current_step, total_letters, completed_letters,
    error_message, files, request, run_stamp, created_at, updated_at, completed_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11, $12, $13)
on conflict (id) do nothing;
`

const QSelectBannerJob = `--sql aef4c75c-3bce-4e0a-8d11-4e1b9d9d4ab4
select id, status, progress, current_step, total_letters, completed_letters,
       error_message, files, request, run_stamp, created_at, updated_at, completed_at
from banner_jobs
where id = $1;
`

const QSelectBannerJobForUpdate = `--sql 175c6e7c-38fd-4369-8fd5-e6b539cf760a
select id, status, progress, current_step, total_letters, completed_letters,
       error_message, files, request, run_stamp, created_at, updated_at, completed_at
from banner_jobs
where id = $1
for update;
`

const QUpdateBannerJob = `--sql a34f6e4c-c251-4528-8f82-0f3d82481d61
update banner_jobs
set status = $2,
    progress = $3,
    current_step = $4,
    total_letters = $5,
    completed_letters = $6,
    error_message = $7,
    files = $8::jsonb,
    request = $9::jsonb,
    updated_at = $10,
    completed_at = $11
where id = $1;
`

const QDeleteExpiredBannerJobs = `--sql e2c368f9-ae8d-4bbb-9aab-9e1ac000e21d
delete from banner_jobs
where created_at < $1
returning id, status, progress, current_step, total_letters, completed_letters,
          error_message, files, request, run_stamp, created_at, updated_at, completed_at;
`

const QBannerJobStats = `--sql a5e0872a-bb0b-494c-a785-6ee94e41ecaf
select
    count(*) filter (where status in ('pending', 'processing')) as active,
    count(*) as total
from banner_jobs;
`
