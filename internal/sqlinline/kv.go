package sqlinline

const QGetKV = `--sql 4f511c7a-d9f9-4243-b6b4-92003b106932
select value from kv where key = $1`

const QPutKV = `--sql 1881132a-a698-41a9-99da-73d53abf2800
insert into kv (key, value) values ($1, $2)
on conflict (key) do update set value = excluded.value`

const QDeleteKV = `--sql c3080f04-46dd-4f51-8410-7233ae294cfa
delete from kv where key = $1`
