package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

var numberPattern = regexp.MustCompile(`[\d,]+\.?\d*`)

// ExtractInsights derives short highlight strings from a free-text answer.
func ExtractInsights(answer string) []string {
	insights := []string{}

	if n := len(numberPattern.FindAllString(answer, -1)); n > 0 {
		insights = append(insights, fmt.Sprintf("发现 %d 个关键数值", n))
	}

	switch {
	case strings.Contains(answer, "增长") || strings.Contains(answer, "上升"):
		insights = append(insights, "数据呈上升趋势")
	case strings.Contains(answer, "下降") || strings.Contains(answer, "减少"):
		insights = append(insights, "数据呈下降趋势")
	}

	if strings.Contains(answer, "最高") || strings.Contains(answer, "最大") {
		insights = append(insights, "已识别最大值")
	}
	if strings.Contains(answer, "最低") || strings.Contains(answer, "最小") {
		insights = append(insights, "已识别最小值")
	}
	return insights
}
