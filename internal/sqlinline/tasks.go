package sqlinline

const QUpsertTask = `--sql e3c813a2-cd32-4874-b5e5-df923c86d06c
insert into tasks (id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at)
values ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9)
on conflict (id) do update set
  user_id = excluded.user_id,
  product_name = excluded.product_name,
  product_description = excluded.product_description,
  vibe = excluded.vibe,
  input_images = excluded.input_images,
  analysis = excluded.analysis,
  plan = excluded.plan,
  created_at = excluded.created_at`

const QGetTask = `--sql 6d6d9687-1419-4b08-b3a9-0dd647c8367a
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks
where id = $1`

const QDeleteTask = `--sql 86847780-f078-4b8e-9382-afd574e27e11
delete from tasks where id = $1`

const QListTasksByUser = `--sql 340ebde2-1647-4f2f-b54e-2342e9e50afe
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks
where user_id = $1`

const QListTasks = `--sql 4f09de62-8e19-44ff-927e-f27dc6739ad6
select id, user_id, product_name, product_description, vibe, input_images, analysis, plan, created_at
from tasks`

const QUpsertTaskImage = `--sql ce900054-4534-4a52-9614-3a7b6164270f
insert into task_images (id, task_id, image_index, mime_type, data)
values ($1, $2, $3, $4, $5)
on conflict (id) do update set
  task_id = excluded.task_id,
  image_index = excluded.image_index,
  mime_type = excluded.mime_type,
  data = excluded.data`

const QListTaskImages = `--sql d7033508-a8d6-4497-aacc-93dc7bd5e44a
select id, task_id, image_index, mime_type, data
from task_images
where task_id = $1`

const QDeleteTaskImage = `--sql ce7d536b-5509-4162-af69-0a11a52eea39
delete from task_images where id = $1`
