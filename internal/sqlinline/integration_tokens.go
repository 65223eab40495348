package sqlinline

// integration_tokens(provider text unique, token text, properties jsonb,
// created_at, updated_at) holds provider API keys managed by cmd/providerkey.

const QSelectIntegrationToken = `--sql c440609b-266e-4997-a812-4ea5b30f449e
SELECT token
FROM integration_tokens
WHERE provider = $1::text;
`

const QUpsertIntegrationToken = `--sql 98029a47-58ae-429f-b906-a63c69b3fa3b
INSERT INTO integration_tokens (id, provider, token, properties, created_at, updated_at)
VALUES (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
ON CONFLICT (provider) DO UPDATE
SET token      = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

const QDeleteIntegrationToken = `--sql 27a41902-e60f-45c2-9447-c82468b7a065
DELETE FROM integration_tokens
WHERE provider = $1::text;
`
