package commands

const (
	textDenied     = "⛔ 权限不足：仅限管理员使用。"
	textNeedArgs   = "请输入指令参数，或发送 /reco help"
	textBusy       = "⏳ 正在处理其他请求，请稍后再试。"
	textCreateFmt  = "❌ 格式：/reco create <名称> <URL|权,ID|权...>"
	textDeleteFmt  = "❌ 格式：/reco del <名称>"
	textNoSource   = "❌ 没有可识别的歌单链接或ID。"
	textNotFound   = "❌ 未找到该推荐名。"
	textUnsubOK    = "✅ 已取消本群订阅。"
	textNotSubbed  = "❌ 本群尚未订阅。"
	textReloaded   = "✅ 配置已重载，定时任务已刷新。"
	textListHeader = "📜 可用推荐列表："
	textNoJobs     = "⏰ 当前没有定时任务。"
	textJobsHeader = "⏰ 已安装的定时任务："
	textFailed     = "❌ 操作失败，请稍后重试。"
	textDocBroken  = "❌ 数据文件格式有误，请修正后发送 /reco reload。"

	textHelp = "🎵 QQ音乐推荐指令帮助：\n" +
		"/reco now [数量] - 立即推荐\n" +
		"/reco list - 查看所有推荐配置\n" +
		"/reco create <名> <链|权,ID|权> - 创建配置\n" +
		"/reco del <名> - 删除自己创建的配置\n" +
		"/reco td 或 /reco unsub - 取消订阅本群\n" +
		"--- 管理员指令 ---\n" +
		"/reco sub <名> <模式:时间> <数量> - 订阅本群\n" +
		"    模式：cron:8,12:30,18（每日定时）或 interval:90（每隔分钟）\n" +
		"/reco reload - 强制重载配置\n" +
		"/reco jobs - 查看定时任务"
)

// Menu descriptions.
const (
	descNow    = "立即推荐"
	descList   = "查看所有推荐配置"
	descCreate = "创建推荐配置"
	descDel    = "删除推荐配置"
	descSub    = "订阅本群（管理员）"
	descUnsub  = "取消订阅本群"
	descReload = "重载配置（管理员）"
	descHelp   = "指令帮助"
	descJobs   = "查看定时任务（管理员）"
)
