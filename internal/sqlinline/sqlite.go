package sqlinline

// SQLite statements use ? and :name placeholders for sqlx.

const QSQLiteUpsertTask = `--sql a2e62465-c0a3-46d3-80a1-51c8ff9d5960
insert into tasks (id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at)
values (:id, :user_id, :product_name, :product_description, :vibe, :input_images, :analysis, :plan, :created_at)
on conflict (id) do update set
  user_id = excluded.user_id,
  product_name = excluded.product_name,
  product_description = excluded.product_description,
  vibe = excluded.vibe,
  input_images = excluded.input_images,
  analysis = excluded.analysis,
  plan = excluded.plan,
  created_at = excluded.created_at`

const QSQLiteGetTask = `--sql d72ff603-60c1-430e-a575-3c95b21ffa35
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks
where id = ?`

const QSQLiteDeleteTask = `--sql 7d928865-ee12-438a-9d91-efb6e49ca36c
delete from tasks where id = ?`

const QSQLiteListTasksByUser = `--sql efda574b-3816-4f1c-a8b3-07b7f4848a08
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks
where user_id = ?`

const QSQLiteListTasks = `--sql 70c58a10-18c9-4e92-9473-0cdc9a132487
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks`

const QSQLiteUpsertTaskImage = `--sql e13834d3-a3fa-4569-a728-744c9e4e9fd1
insert into task_images (id, task_id, image_index, mime_type, data)
values (:id, :task_id, :image_index, :mime_type, :data)
on conflict (id) do update set
  task_id = excluded.task_id,
  image_index = excluded.image_index,
  mime_type = excluded.mime_type,
  data = excluded.data`

const QSQLiteListImagesByTask = `--sql b3b6ae6e-109e-4cbc-8913-34edb945d4c0
select id, task_id, image_index, mime_type, data
from task_images
where task_id = ?`

const QSQLiteDeleteTaskImage = `--sql 73d8853d-1628-4a80-b6c8-c090d9e3e823
delete from task_images where id = ?`

const QSQLiteGetKV = `--sql a1aa436e-08c4-464c-a291-85186512348b
select value from kv where key = ?`

const QSQLitePutKV = `--sql 0a62f95c-b53c-4c37-9eda-6f05e99fd351
insert into kv (key, value) values (?, ?)
on conflict (key) do update set value = excluded.value`

const QSQLiteDeleteKV = `--sql 33373ab2-445a-4b11-9e59-ed0411c9e45e
delete from kv where key = ?`
