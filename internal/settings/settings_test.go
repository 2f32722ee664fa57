package settings

import (
	"context"
	"errors"
	"testing"

	"custom-gateway/internal/database/dbtest"
	"custom-gateway/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsMatchRegisteredSettings(t *testing.T) {
	f := Fields()
	require.Len(t, f, 3)
	assert.Equal(t, KeyAPIKey, f[0].ID)
	assert.Equal(t, "API Key", f[0].Name)
	assert.False(t, f[0].Sensitive())
	assert.Equal(t, KeySecret, f[1].ID)
	assert.True(t, f[1].Sensitive())

	f[0].Name = "changed"
	assert.Equal(t, "API Key", Fields()[0].Name)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(map[string]string{KeyAPIKey: "pk_1", KeySecret: "", KeyTestMode: "true"}))

	err := Validate(map[string]string{"custom_gateway_webhook": "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = Validate(map[string]string{KeyTestMode: "sometimes"})
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, KeyTestMode, de.Field)
}

func TestRedact(t *testing.T) {
	got := Redact(map[string]string{KeyAPIKey: "pk_1", KeySecret: "sk_live_1"})
	assert.Equal(t, "pk_1", got[KeyAPIKey])
	assert.Equal(t, "********", got[KeySecret])

	got = Redact(map[string]string{KeySecret: ""})
	assert.Equal(t, "", got[KeySecret])
}

func TestStatic(t *testing.T) {
	want := domain.GatewayCredentials{APIKey: "pk", Secret: "sk", TestMode: true}
	got, err := NewStatic(want).Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

type fakeSecrets struct {
	value *string
	err   error
	calls int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: f.value}, nil
}

func TestSecretsManagerReadsEveryCall(t *testing.T) {
	fake := &fakeSecrets{value: aws.String(`{"custom_gateway_api_key":"pk_1","custom_gateway_secret":"sk_1","custom_gateway_test_mode":true}`)}
	store := &SecretsManager{client: fake, name: "custom-gateway/credentials"}
	ctx := context.Background()

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayCredentials{APIKey: "pk_1", Secret: "sk_1", TestMode: true}, creds)

	fake.value = aws.String(`{"custom_gateway_api_key":"pk_2","custom_gateway_secret":"sk_2"}`)
	creds, err = store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk_2", creds.Secret)
	assert.False(t, creds.TestMode)
	assert.Equal(t, 2, fake.calls)
}

func TestSecretsManagerErrors(t *testing.T) {
	ctx := context.Background()

	_, err := (&SecretsManager{client: &fakeSecrets{err: errors.New("access denied")}, name: "n"}).Credentials(ctx)
	assert.ErrorContains(t, err, "access denied")

	_, err = (&SecretsManager{client: &fakeSecrets{}, name: "n"}).Credentials(ctx)
	assert.ErrorContains(t, err, "no string value")

	_, err = (&SecretsManager{client: &fakeSecrets{value: aws.String("not json")}, name: "n"}).Credentials(ctx)
	assert.ErrorContains(t, err, "decode secret")
}

func TestSecretsManagerMissingKeysAreIncomplete(t *testing.T) {
	store := &SecretsManager{client: &fakeSecrets{value: aws.String(`{"custom_gateway_api_key":"pk_1"}`)}, name: "n"}
	creds, err := store.Credentials(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.Complete())
}

func TestSecretsManagerAcceptsShortKeys(t *testing.T) {
	fake := &fakeSecrets{value: aws.String(`{"api_key":"pk_1","secret":"sk_1","test_mode":"true"}`)}
	store := &SecretsManager{client: fake, name: "n"}
	creds, err := store.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayCredentials{APIKey: "pk_1", Secret: "sk_1", TestMode: true}, creds)

	fake.value = aws.String(`{"custom_gateway_api_key":"pk_full","api_key":"pk_short","secret":"sk_1"}`)
	creds, err = store.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk_full", creds.APIKey)
	assert.True(t, creds.Complete())
}

func TestPostgresRotationVisibleOnNextRead(t *testing.T) {
	db := dbtest.New(t)
	store := NewPostgres(db.DB())
	ctx := context.Background()

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.False(t, creds.Complete())

	require.NoError(t, store.Save(ctx, map[string]string{KeyAPIKey: "pk_1", KeySecret: "sk_1", KeyTestMode: "true"}))
	creds, err = store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayCredentials{APIKey: "pk_1", Secret: "sk_1", TestMode: true}, creds)

	require.NoError(t, store.Save(ctx, map[string]string{KeySecret: "sk_2"}))
	creds, err = store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pk_1", creds.APIKey)
	assert.Equal(t, "sk_2", creds.Secret)

	err = store.Save(ctx, map[string]string{"unknown": "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	values, err := store.Values(ctx)
	require.NoError(t, err)
	assert.Len(t, values, 3)
}
