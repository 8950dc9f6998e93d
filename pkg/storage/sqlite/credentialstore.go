/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/trustbloc/wallet-engine/internal/logfields"
	"github.com/trustbloc/wallet-engine/pkg/crypto"
	"github.com/trustbloc/wallet-engine/pkg/dataprotect"
	"github.com/trustbloc/wallet-engine/pkg/doc/verifiable"
	"github.com/trustbloc/wallet-engine/pkg/walleterror"
)

// ErrCredentialNotFound is returned by lookups that match no stored credential.
var ErrCredentialNotFound = errors.New("credential not found")

// keyNotAvailableSentinel is stored in the key columns of the one credential
// type that has no holder binding. Key columns are never left empty.
var keyNotAvailableSentinel = []byte(`{"value":"Not Available"}`) //nolint:gochecknoglobals

// CredentialRecord is a stored credential row with decrypted columns.
type CredentialRecord struct {
	ID               int64
	CredentialString string
	ParsedCredential map[string]interface{}
	Format           verifiable.Format
	Claims           map[string]interface{}
	PublicKey        json.RawMessage
	PrivateKey       json.RawMessage
	IssDate          int64
	ExpDate          int64
}

// JSONPathMatch is one row of an ordered first-match JSON path query.
type JSONPathMatch struct {
	CredentialID  int64
	MatchingPath  string
	MatchingValue string
}

// CredentialStore persists issued credentials. Records are immutable after
// insert; the only mutation is deletion.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a credential store over db.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Store validates, encrypts and inserts a credential, returning the assigned
// id. The claim map, parsed form and issuance date must all be derivable from
// the credential string. A key pair is mandatory for every credential type
// except the student ID, which is stored with sentinel key columns.
func (s *CredentialStore) Store(ctx context.Context, credentialString string, keyPair *crypto.KeyPair) (int64, error) {
	const op = "Store"

	format := verifiable.DetectFormat(credentialString)

	codec, err := verifiable.CodecFor(format)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	claims, err := codec.Claims(credentialString)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
			fmt.Errorf("derive claims: %w", err))
	}

	parsed, err := codec.Decode(credentialString)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
			fmt.Errorf("derive parsed form: %w", err))
	}

	issDate, ok := unixClaim(claims["iat"])
	if !ok {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
			errors.New("credential has no iat claim to derive issuance date from"))
	}

	expDate, _ := unixClaim(claims["exp"])

	publicKey, privateKey, err := keyColumns(claims, keyPair)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	protector, err := s.db.protector()
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	columns := map[string][]byte{
		"credential_string": []byte(credentialString),
		"parsed_credential": parsedJSON,
		"credential_claims": claimsJSON,
		"public_key":        publicKey,
		"private_key":       privateKey,
	}

	encrypted := make(map[string][]byte, len(columns))

	for name, plaintext := range columns {
		encrypted[name], err = protector.Encrypt(plaintext)
		if err != nil {
			return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
				fmt.Errorf("encrypt %s: %w", name, err))
		}
	}

	conn, err := s.db.open()
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	result, err := conn.ExecContext(ctx,
		`INSERT INTO credentials (credential_string, parsed_credential, credential_format,
			credential_claims, public_key, private_key, iss_date, exp_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		encrypted["credential_string"], encrypted["parsed_credential"], string(format),
		encrypted["credential_claims"], encrypted["public_key"], encrypted["private_key"],
		issDate, expDate)
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	logger.Info("credential stored", logfields.WithCredentialID(id),
		logfields.WithCredentialFormat(string(format)))

	return id, nil
}

// RetrieveCredentials returns every stored credential with decrypted columns.
func (s *CredentialStore) RetrieveCredentials(ctx context.Context) ([]*CredentialRecord, error) {
	const op = "RetrieveCredentials"

	protector, err := s.db.protector()
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	conn, err := s.db.open()
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	rows, err := conn.QueryContext(ctx,
		`SELECT id, credential_string, parsed_credential, credential_format,
			credential_claims, public_key, private_key, iss_date, exp_date
		FROM credentials ORDER BY id`)
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer rows.Close() //nolint:errcheck

	var records []*CredentialRecord

	for rows.Next() {
		record, err := scanRecord(rows, protector)
		if err != nil {
			return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return records, nil
}

// RetrieveCredentialIDsByFormat returns the ids of credentials stored in the
// given format.
func (s *CredentialStore) RetrieveCredentialIDsByFormat(ctx context.Context,
	format verifiable.Format) ([]int64, error) {
	const op = "RetrieveCredentialIDsByFormat"

	conn, err := s.db.open()
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	rows, err := conn.QueryContext(ctx,
		"SELECT id FROM credentials WHERE credential_format = ? ORDER BY id", string(format))
	if err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64

	for rows.Next() {
		var id int64

		if err = rows.Scan(&id); err != nil {
			return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
		}

		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return ids, nil
}

// RetrieveCredentialsByJSONPath evaluates an ordered first-match over the
// candidate claim paths for every stored credential: the first path in paths
// that exists in a row's claims produces that row's match.
func (s *CredentialStore) RetrieveCredentialsByJSONPath(ctx context.Context,
	paths []string) ([]JSONPathMatch, error) {
	const op = "RetrieveCredentialsByJSONPath"

	var matches []JSONPathMatch

	err := s.scanClaims(ctx, op, func(id int64, claimsJSON []byte) (bool, error) {
		for _, path := range paths {
			result := gjson.GetBytes(claimsJSON, path)
			if result.Exists() {
				matches = append(matches, JSONPathMatch{
					CredentialID:  id,
					MatchingPath:  path,
					MatchingValue: result.String(),
				})

				break
			}
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return matches, nil
}

// RetrieveCredentialByJSONPathValue returns the credential string of the first
// credential whose claim at path equals value, or ErrCredentialNotFound.
func (s *CredentialStore) RetrieveCredentialByJSONPathValue(ctx context.Context,
	path, value string) (string, error) {
	const op = "RetrieveCredentialByJSONPathValue"

	protector, err := s.db.protector()
	if err != nil {
		return "", walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	var credentialString string

	err = s.scanClaimsWithCredential(ctx, op, protector,
		func(_ int64, claimsJSON, credential []byte) (bool, error) {
			result := gjson.GetBytes(claimsJSON, path)
			if result.Exists() && result.String() == value {
				credentialString = string(credential)

				return true, nil
			}

			return false, nil
		})
	if err != nil {
		return "", err
	}

	if credentialString == "" {
		return "", walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, ErrCredentialNotFound)
	}

	return credentialString, nil
}

// DeleteAllCredentials removes every stored credential.
func (s *CredentialStore) DeleteAllCredentials(ctx context.Context) error {
	const op = "DeleteAllCredentials"

	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	if _, err = conn.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return nil
}

// DeleteCredentialByID removes one credential and fails when the id does not
// exist.
func (s *CredentialStore) DeleteCredentialByID(ctx context.Context, id int64) error {
	const op = "DeleteCredentialByID"

	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	result, err := conn.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id)
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	if affected == 0 {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, ErrCredentialNotFound)
	}

	logger.Info("credential deleted", logfields.WithCredentialID(id))

	return nil
}

// DeleteCredentialByIDSimple removes one credential without checking whether
// the id existed.
func (s *CredentialStore) DeleteCredentialByIDSimple(ctx context.Context, id int64) error {
	const op = "DeleteCredentialByIDSimple"

	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	if _, err = conn.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id); err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return nil
}

// DeleteCredentialsByID removes the given ids in one statement.
func (s *CredentialStore) DeleteCredentialsByID(ctx context.Context, ids []int64) error {
	const op = "DeleteCredentialsByID"

	if len(ids) == 0 {
		return nil
	}

	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := lo.Map(ids, func(id int64, _ int) interface{} { return id })

	query := fmt.Sprintf("DELETE FROM credentials WHERE id IN (%s)", placeholders)

	if _, err = conn.ExecContext(ctx, query, args...); err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return nil
}

// DeleteCredentialByType resolves a short type tag to its vct and deletes the
// first credential of that type. The age-verification tag additionally
// matches credentials carrying the boolean age claim.
func (s *CredentialStore) DeleteCredentialByType(ctx context.Context, typeTag string) error {
	const op = "DeleteCredentialByType"

	vct, err := vctForTypeTag(typeTag)
	if err != nil {
		return walleterror.NewValidationError(walleterror.CredentialStoreComponent, op, err)
	}

	var matchedID int64 = -1

	err = s.scanClaims(ctx, op, func(id int64, claimsJSON []byte) (bool, error) {
		if claimsMatchType(claimsJSON, vct, typeTag) {
			matchedID = id

			return true, nil
		}

		return false, nil
	})
	if err != nil {
		return err
	}

	if matchedID < 0 {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, ErrCredentialNotFound)
	}

	return s.DeleteCredentialByID(ctx, matchedID)
}

// scanClaims decrypts the claims column row by row and feeds it to visit,
// which returns true to stop the scan.
func (s *CredentialStore) scanClaims(ctx context.Context, op string,
	visit func(id int64, claimsJSON []byte) (bool, error)) error {
	protector, err := s.db.protector()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return s.scanClaimsWithCredential(ctx, op, protector,
		func(id int64, claimsJSON, _ []byte) (bool, error) {
			return visit(id, claimsJSON)
		})
}

func (s *CredentialStore) scanClaimsWithCredential(ctx context.Context, op string,
	protector dataprotect.Protector,
	visit func(id int64, claimsJSON, credential []byte) (bool, error)) error {
	conn, err := s.db.open()
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer conn.Close() //nolint:errcheck

	rows, err := conn.QueryContext(ctx,
		"SELECT id, credential_claims, credential_string FROM credentials ORDER BY id")
	if err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			id                             int64
			encryptedClaims, encryptedCred []byte
		)

		if err = rows.Scan(&id, &encryptedClaims, &encryptedCred); err != nil {
			return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
		}

		claimsJSON, err := protector.Decrypt(encryptedClaims)
		if err != nil {
			return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
				fmt.Errorf("decrypt claims for credential %d: %w", id, err))
		}

		credential, err := protector.Decrypt(encryptedCred)
		if err != nil {
			return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op,
				fmt.Errorf("decrypt credential %d: %w", id, err))
		}

		stop, err := visit(id, claimsJSON, credential)
		if err != nil {
			return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
		}

		if stop {
			return nil
		}
	}

	if err = rows.Err(); err != nil {
		return walleterror.NewStorageError(walleterror.CredentialStoreComponent, op, err)
	}

	return nil
}

func scanRecord(rows *sql.Rows, protector dataprotect.Protector) (*CredentialRecord, error) {
	var (
		record     CredentialRecord
		formatStr  string
		expDate    sql.NullInt64
		credential []byte
		parsed     []byte
		claims     []byte
		publicKey  []byte
		privateKey []byte
	)

	if err := rows.Scan(&record.ID, &credential, &parsed, &formatStr, &claims,
		&publicKey, &privateKey, &record.IssDate, &expDate); err != nil {
		return nil, err
	}

	record.Format = verifiable.Format(formatStr)
	record.ExpDate = expDate.Int64

	decrypted := make(map[string][]byte, 5)

	for name, ciphertext := range map[string][]byte{
		"credential_string": credential,
		"parsed_credential": parsed,
		"credential_claims": claims,
		"public_key":        publicKey,
		"private_key":       privateKey,
	} {
		plaintext, err := protector.Decrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s for credential %d: %w", name, record.ID, err)
		}

		decrypted[name] = plaintext
	}

	record.CredentialString = string(decrypted["credential_string"])
	record.PublicKey = decrypted["public_key"]
	record.PrivateKey = decrypted["private_key"]

	if err := json.Unmarshal(decrypted["parsed_credential"], &record.ParsedCredential); err != nil {
		return nil, fmt.Errorf("decode parsed credential %d: %w", record.ID, err)
	}

	if err := json.Unmarshal(decrypted["credential_claims"], &record.Claims); err != nil {
		return nil, fmt.Errorf("decode claims for credential %d: %w", record.ID, err)
	}

	return &record, nil
}

// keyColumns produces the key column values. A missing key pair is allowed
// only for the student ID type, which has no holder binding.
func keyColumns(claims map[string]interface{}, keyPair *crypto.KeyPair) ([]byte, []byte, error) {
	if keyPair == nil {
		vct, _ := claims["vct"].(string)
		if vct != verifiable.VCTStudentID {
			return nil, nil, fmt.Errorf("credential type %q requires a holder key pair", vct)
		}

		return keyNotAvailableSentinel, keyNotAvailableSentinel, nil
	}

	publicKey, err := crypto.MarshalJWK(keyPair.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	privateKey, err := crypto.MarshalJWK(keyPair.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}

	return publicKey, privateKey, nil
}

func unixClaim(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()

		return n, err == nil
	default:
		return 0, false
	}
}
