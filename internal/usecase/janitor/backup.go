package janitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/klauspost/compress/zip"

	"spot-bot/internal/domain"
	"spot-bot/internal/presenter"
)

// Backup выгружает базу и отправляет файл в чат chatID.
// Ошибка сообщается в группу админов.
func (s *Service) Backup(ctx context.Context, chatID int64) error {
	err := s.backup(ctx, chatID)
	if err != nil {
		if _, sendErr := s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(presenter.BackupFailed(err)), domain.SendOptions{}); sendErr != nil {
			s.log.Warn().Err(sendErr).Msg("не удалось сообщить об ошибке бэкапа")
		}
	}
	return err
}

func (s *Service) backup(ctx context.Context, chatID int64) error {
	dir, err := os.MkdirTemp("", "spot-backup-*")
	if err != nil {
		return fmt.Errorf("временный каталог: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "spot_"+s.clock.Now().Format("20060102_150405")+".db")
	if err := s.store.Backup(ctx, path); err != nil {
		return fmt.Errorf("выгрузка базы: %w", err)
	}
	if s.opts.ZipBackup {
		if path, err = zipFile(path); err != nil {
			return err
		}
	}
	if s.opts.BackupRecipient != "" {
		if path, err = encryptFile(path, s.opts.BackupRecipient); err != nil {
			return err
		}
	}

	doc := domain.Document{Name: filepath.Base(path), Path: path}
	if chatID == s.opts.AdminGroupID {
		_, err = s.gw.SendDocument(ctx, chatID, doc, presenter.TextBackupOK)
		return err
	}
	if _, err := s.gw.SendDocument(ctx, chatID, doc, ""); err != nil {
		return err
	}
	_, err = s.gw.Send(ctx, s.opts.AdminGroupID, domain.Text(presenter.TextBackupOK), domain.SendOptions{})
	return err
}

// zipFile упаковывает файл в архив рядом с ним.
func zipFile(src string) (string, error) {
	dst := src + ".zip"
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("архив: %w", err)
	}
	defer out.Close()
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("архив: %w", err)
	}
	defer in.Close()

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.Base(src), Method: zip.Deflate})
	if err != nil {
		return "", fmt.Errorf("архив: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return "", fmt.Errorf("архив: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("архив: %w", err)
	}
	return dst, out.Close()
}

// encryptFile шифрует файл для получателя age.
func encryptFile(src, recipientKey string) (string, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return "", fmt.Errorf("получатель бэкапа: %w", err)
	}
	dst := src + ".age"
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("шифрование: %w", err)
	}
	defer out.Close()
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("шифрование: %w", err)
	}
	defer in.Close()

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		return "", fmt.Errorf("шифрование: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return "", fmt.Errorf("шифрование: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("шифрование: %w", err)
	}
	return dst, out.Close()
}
