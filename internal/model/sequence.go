package model

// BioSequence 对应 bio_sequence 表。
type BioSequence struct {
	ID          int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string                 `gorm:"type:varchar(255);index" json:"name"`
	Description string                 `gorm:"type:text" json:"description"`
	TaxonID     int64                  `json:"taxonId"`
	Accessions  []BioSequenceAccession `gorm:"foreignKey:BioSequenceID" json:"accessions,omitempty"`
}

func (BioSequence) TableName() string {
	return "bio_sequence"
}

func (s *BioSequence) EntityID() int64        { return s.ID }
func (s *BioSequence) EntityType() EntityType { return EntitySequence }

// BioSequenceAccession 记录序列在外部数据库（如 GenBank）中的登录号。
type BioSequenceAccession struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BioSequenceID int64  `gorm:"not null;index" json:"bioSequenceId"`
	Accession     string `gorm:"type:varchar(255);index" json:"accession"`
}

func (BioSequenceAccession) TableName() string {
	return "bio_sequence_accession"
}

// BioSequence2GeneProduct 是序列比对得到的序列与基因产物的关联。
type BioSequence2GeneProduct struct {
	ID            int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BioSequenceID int64 `gorm:"not null;index" json:"bioSequenceId"`
	GeneProductID int64 `gorm:"not null;index" json:"geneProductId"`
}

func (BioSequence2GeneProduct) TableName() string {
	return "bio_sequence2gene_product"
}
