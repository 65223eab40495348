package sqlinline

const QInsertClosetItem = `--sql ff7541dd-809e-4ed7-9f6a-775768c46e0a
insert into closet_items(
  id,
  user_id,
  category,
  style,
  storage_key,
  mime,
  bytes,
  is_favorite,
  background_removed,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::bigint,
  false,
  $8::boolean,
  now()
) returning created_at;
`

const QListClosetItems = `--sql 9f553769-ef48-44fd-a21e-a5fd995d8b60
select
  id::text,
  user_id,
  category,
  style,
  storage_key,
  mime,
  bytes,
  is_favorite,
  background_removed,
  created_at
from closet_items
where user_id = $1::text
  and ($2::text = '' or category = $2::text)
order by created_at desc, id desc;
`

const QSelectClosetItem = `--sql aa0034b9-6af6-4219-a367-b807aa67eba4
select
  id::text,
  user_id,
  category,
  style,
  storage_key,
  mime,
  bytes,
  is_favorite,
  background_removed,
  created_at
from closet_items
where user_id = $1::text
  and id = $2::uuid
limit 1;
`

const QUpdateClosetFavorite = `--sql e6f365d5-6a88-4314-b9e0-01f4d8a146ff
update closet_items
set is_favorite = $3::boolean
where user_id = $1::text
  and id = $2::uuid;
`

const QDeleteClosetItem = `--sql 32c6e4bb-f6b0-4d97-9332-d96b32fe9fee
delete from closet_items
where user_id = $1::text
  and id = $2::uuid
returning id::text, user_id, category, style, storage_key, mime, bytes, is_favorite, background_removed, created_at;
`
