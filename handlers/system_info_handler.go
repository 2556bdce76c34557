package handlers

import (
	"fmt"
	"log"
	"runtime"

	"modkeeper/bot"
	"modkeeper/utils"
	cases_db "modkeeper/utils/database/cases"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HandleSystemInfoCommand reports host and engine status.
func HandleSystemInfoCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireModerator(s, i, b) {
		return
	}

	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	openCases, err := cases_db.CountOpen(b.DB, i.GuildID)
	if err != nil {
		log.Printf("Error counting open cases for guild %s: %v", i.GuildID, err)
	}
	activePunishments, err := punishments_db.CountActive(b.DB, i.GuildID)
	if err != nil {
		log.Printf("Error counting active punishments for guild %s: %v", i.GuildID, err)
	}

	cpuUsage := "n/a"
	if len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	embed := &discordgo.MessageEmbed{
		Title: "System Info",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: cpuUsage, Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true},
			{Name: "⏱️ Latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "📋 Open cases", Value: fmt.Sprintf("%d", openCases), Inline: true},
			{Name: "⏳ Active punishments", Value: fmt.Sprintf("%d", activePunishments), Inline: true},
		},
	}
	utils.SendEmbedResponse(s, i, embed)
}
