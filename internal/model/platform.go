package model

// ArrayDesign 对应 array_design 表，即检测平台。
type ArrayDesign struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);index" json:"name"`
	ShortName   string `gorm:"type:varchar(255);index" json:"shortName"`
	Accession   string `gorm:"type:varchar(255);index" json:"accession"`
	Description string `gorm:"type:text" json:"description"`
	TaxonID     int64  `json:"taxonId"`
}

func (ArrayDesign) TableName() string {
	return "array_design"
}

func (a *ArrayDesign) EntityID() int64        { return a.ID }
func (a *ArrayDesign) EntityType() EntityType { return EntityPlatform }

// CompositeSequence 对应 composite_sequence 表，即平台上的探针。
type CompositeSequence struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string `gorm:"type:varchar(255);index" json:"name"`
	Description   string `gorm:"type:text" json:"description"`
	ArrayDesignID int64  `gorm:"not null;index" json:"arrayDesignId"`
	BioSequenceID *int64 `gorm:"index" json:"bioSequenceId,omitempty"`
}

func (CompositeSequence) TableName() string {
	return "composite_sequence"
}

func (c *CompositeSequence) EntityID() int64        { return c.ID }
func (c *CompositeSequence) EntityType() EntityType { return EntityProbe }
