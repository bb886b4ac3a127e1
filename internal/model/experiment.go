package model

// ExpressionExperiment 对应 expression_experiment 表。
type ExpressionExperiment struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);index" json:"name"`
	ShortName   string `gorm:"type:varchar(255);index" json:"shortName"`
	Accession   string `gorm:"type:varchar(255);index" json:"accession"`
	Description string `gorm:"type:text" json:"description"`
	TaxonID     int64  `json:"taxonId"`
}

func (ExpressionExperiment) TableName() string {
	return "expression_experiment"
}

func (e *ExpressionExperiment) EntityID() int64        { return e.ID }
func (e *ExpressionExperiment) EntityType() EntityType { return EntityExperiment }

// FactorValue 是实验设计中某个因子的取值。
type FactorValue struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ExperimentID int64  `gorm:"not null;index" json:"experimentId"`
	Value        string `gorm:"type:varchar(255)" json:"value"`
}

func (FactorValue) TableName() string {
	return "factor_value"
}

// BioMaterial 是实验中的单个样本。
type BioMaterial struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ExperimentID int64  `gorm:"not null;index" json:"experimentId"`
	Name         string `gorm:"type:varchar(255)" json:"name"`
}

func (BioMaterial) TableName() string {
	return "bio_material"
}

// Characteristic 是一条本体注释，只属于实验、因子取值或样本三者之一。
type Characteristic struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Category      string `gorm:"type:varchar(255)" json:"category"`
	CategoryURI   string `gorm:"column:category_uri;type:varchar(255)" json:"categoryUri"`
	Value         string `gorm:"type:varchar(255)" json:"value"`
	ValueURI      string `gorm:"column:value_uri;type:varchar(255);index" json:"valueUri"`
	ExperimentID  *int64 `gorm:"index" json:"experimentId,omitempty"`
	FactorValueID *int64 `gorm:"index" json:"factorValueId,omitempty"`
	BioMaterialID *int64 `gorm:"index" json:"bioMaterialId,omitempty"`
}

func (Characteristic) TableName() string {
	return "characteristic"
}

// ExpressionExperimentSet 对应 expression_experiment_set 表。
type ExpressionExperimentSet struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	TaxonID     int64  `json:"taxonId"`
}

func (ExpressionExperimentSet) TableName() string {
	return "expression_experiment_set"
}

func (s *ExpressionExperimentSet) EntityID() int64        { return s.ID }
func (s *ExpressionExperimentSet) EntityType() EntityType { return EntityExperimentSet }

// ExpressionExperimentSetMember 是实验集合的成员。
type ExpressionExperimentSetMember struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SetID        int64 `gorm:"not null;index" json:"setId"`
	ExperimentID int64 `gorm:"not null;index" json:"experimentId"`
}

func (ExpressionExperimentSetMember) TableName() string {
	return "expression_experiment_set_member"
}
