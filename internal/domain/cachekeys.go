package domain

import "fmt"

// UpdateKey: ключ дедупликации входящего обновления.
func UpdateKey(updateID int) string {
	return fmt.Sprintf("upd:%d", updateID)
}

// SignKey: подпись поста, ожидающая автоматической пересылки в группу сообщества.
func SignKey(post MessageRef) string {
	return fmt.Sprintf("sign:%d:%d", post.ChatID, post.MessageID)
}

// ThreadKey: ветка, к которой относится комментарий.
func ThreadKey(comment MessageRef) string {
	return fmt.Sprintf("thread:%d:%d", comment.ChatID, comment.MessageID)
}

// AdminNameKey: отображаемое имя админа для итоговой карточки.
func AdminNameKey(adminID int64) string {
	return fmt.Sprintf("admin:%d", adminID)
}
