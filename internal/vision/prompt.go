package vision

import "github.com/yuchiaw/oil-intake/constants"

// BuildInstruction composes the transcription instruction for one label
// region. The wording deliberately asks the model to echo the printed
// markers (品名, 售價, Sell by date, Batch no.) so the normalizer's
// marker-led extraction has something to anchor on, and it calls out
// the near-homograph trap (雲杉 vs 薰香) that plagued earlier runs.
func BuildInstruction(region string) string {
	common := "你是一位極其細心的倉庫管理專家。請徹底掃描圖片中的所有文字，" +
		"逐行抄錄，不要改寫或翻譯。特別區分筆畫相近的繁體中文字（例如：是「雲杉」而非「薰香」）。"
	switch region {
	case constants.RegionFront:
		return common +
			"這是瓶身正面標籤。請完整抄錄產品名稱（標示為「品名」）、售價（金額數字）與容量（如 6ML）。" +
			"請保留原始標示文字，例如「品名:」與「售價:」。"
	case constants.RegionSide:
		return common +
			"這是瓶身側面標籤。請完整抄錄保存期限（例如 'Sell by date: 04-28'）" +
			"與批號（'Batch no.:' 之後的完整字串，必須包含連字號，例如 7-330705）。" +
			"條碼數字與儲位代碼請照抄但不要與批號混淆。"
	}
	return common
}
