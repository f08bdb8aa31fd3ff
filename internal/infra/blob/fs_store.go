package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrBlobNotFound = errors.New("blob not found")

// 商品画像のファイル保存。
// 参照（ファイル名）だけを返し、DB側はその文字列を持つ。
type FsStore struct {
	dir string
}

func NewFsStore(dir string) (*FsStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FsStore{dir: dir}, nil
}

// Store はバイト列を保存して参照を返す。
// ファイル名はUUIDにして、ユーザー入力をパスに使わない。
func (s *FsStore) Store(ctx context.Context, data []byte) (string, error) {
	ref := uuid.NewString() + ".png"

	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

// Delete は参照のファイルを消す。無いものを消してもエラーにしない。
func (s *FsStore) Delete(ctx context.Context, ref string) error {
	name := filepath.Base(ref)

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Retrieve は参照からバイト列を読み戻す。
func (s *FsStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	// 参照に紛れたパス区切りは落とす
	name := filepath.Base(ref)

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}
