package model

// Theme 顶层分组（如教学大纲的一章）
// swagger:model Theme
type Theme struct {
	UUIDBase
	Name   string  `gorm:"size:200;not null" json:"name"`
	Order  int     `gorm:"column:sort_order;default:0;index" json:"order"`
	Topics []Topic `gorm:"foreignKey:ThemeID" json:"topics,omitempty"`
}

func (Theme) TableName() string {
	return "themes"
}

// Topic 主题下的知识点，包含若干任务
// swagger:model Topic
type Topic struct {
	UUIDBase
	ThemeID string `gorm:"type:varchar(36);index;not null" json:"themeId"`
	Name    string `gorm:"size:200;not null" json:"name"`
	Order   int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (Topic) TableName() string {
	return "topics"
}

// Task 单个编程练习，通过比较程序输出判定是否完成
// swagger:model Task
type Task struct {
	UUIDBase
	TopicID        string `gorm:"type:varchar(36);index:idx_tasks_topic;not null" json:"topicId"`
	Title          string `gorm:"size:200;not null" json:"title"`
	Description    string `gorm:"type:text" json:"description"`
	StarterCode    string `gorm:"type:text" json:"starterCode"`
	ExpectedOutput string `gorm:"type:text" json:"expectedOutput,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// DefaultStarterCode 新建任务时的默认模板
const DefaultStarterCode = `public class Main {
  public static void main(String[] args) {
    System.out.println("Hello, Codegrow!");
  }
}`
