package bot

import (
	"pdfsummarizer/internal/domain"

	"github.com/go-telegram/bot/models"
)

const modeCallbackPrefix = "mode_"

func getModeKeyboard(current domain.Mode) [][]models.InlineKeyboardButton {
	return [][]models.InlineKeyboardButton{
		{
			modeButton("📝 Text", domain.ModeText, current),
			modeButton("📄 PDF", domain.ModePDF, current),
		},
	}
}

func modeButton(label string, mode, current domain.Mode) models.InlineKeyboardButton {
	if mode == current {
		label = "✅ " + label
	}

	return models.InlineKeyboardButton{
		Text:         label,
		CallbackData: modeCallbackPrefix + string(mode),
	}
}
